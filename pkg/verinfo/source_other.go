//go:build !windows

package verinfo

// NewSource returns the version metadata source for this platform.
func NewSource() Source {
	return Portable{}
}

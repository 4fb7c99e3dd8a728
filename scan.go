package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/petriage/petriage/pkg/entropy"
	"github.com/petriage/petriage/pkg/pefile"
	"github.com/petriage/petriage/pkg/ssh"
	"github.com/petriage/petriage/pkg/store"
	"github.com/petriage/petriage/pkg/verinfo"
)

func hasBinaryExt(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range constBinaryExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// sectionEntropies computes the entropy of each section's raw data, in
// section table order.
func sectionEntropies(f *pefile.File) []store.SectionEntropy {
	out := make([]store.SectionEntropy, 0, len(f.Sections))
	for _, s := range f.Sections {
		out = append(out, store.SectionEntropy{Name: s.Name, Entropy: entropy.Sum(s.Data)})
	}
	return out
}

// scanPath analyzes a local binary. Version metadata and section analysis
// run independently: a failure in one never blocks the other, and a section
// parse failure is captured in the record rather than returned, so partial
// results still get persisted.
func (cfg *config) scanPath(path string) *Report {
	rep := &Report{Path: path, Name: filepath.Base(path), Checksums: new(Checksums)}
	rec := &store.Record{Path: path}

	rec.ApplyVersionInfo(cfg.verSource.Read(path))

	if pe, err := pefile.Open(path); err != nil {
		rec.SetSectionsError(err.Error())
	} else {
		rec.SetSections(sectionEntropies(pe))
	}

	var err error
	if rep.IsPE, err = IsFilePE(path); err != nil {
		log.Printf("(!) could not check magic of (%s): %v", path, err)
	}
	if rep.Entropy, err = FileEntropy(path); err != nil {
		log.Printf("(!) could not calculate entropy of (%s): %v", path, err)
	}
	if err = cfg.runEnabledHashers(rep); err != nil {
		log.Printf("(!) %v", err)
	}

	rep.Record = rec
	return rep
}

// scanData analyzes an in-memory image fetched from a remote host. key is
// the record's path key (host:path).
func (cfg *config) scanData(key, name string, data []byte) *Report {
	rep := &Report{Path: key, Name: name, Checksums: new(Checksums)}
	rec := &store.Record{Path: key}

	rec.ApplyVersionInfo(verinfo.FromBytes(data))

	if pe, err := pefile.Parse(data); err != nil {
		rec.SetSectionsError(err.Error())
	} else {
		rec.SetSections(sectionEntropies(pe))
	}

	rep.IsPE = IsPE(data)
	rep.Entropy = entropy.Sum(data)
	for _, ht := range cfg.hashers {
		rep.Checksums.Set(ht, hashData(data, ht))
	}

	rep.Record = rec
	return rep
}

// commit persists and prints one report. Upserts stay serialized even when
// reports are computed concurrently.
func (cfg *config) commit(rep *Report) {
	if rep == nil {
		return
	}
	cfg.upsertSync.Lock()
	err := cfg.store.Upsert(rep.Record)
	cfg.upsertSync.Unlock()
	if err != nil {
		log.Printf("(!) %v", err)
	}

	cfg.printSync.Lock()
	cfg.printResults(rep)
	cfg.printSync.Unlock()
}

// scanAll runs scan over every path, sequentially by default or on a
// worker pool with -fast.
func (cfg *config) scanAll(paths []string, scan func(string) *Report) {
	if !cfg.goFast {
		for _, p := range paths {
			cfg.commit(scan(p))
		}
		return
	}

	wg := new(sync.WaitGroup)
	workers, _ := ants.NewPool(runtime.NumCPU())
	defer workers.Release()

	for _, p := range paths {
		p := p
		wg.Add(1)
		_ = workers.Submit(func() {
			defer wg.Done()
			cfg.commit(scan(p))
		})
	}

	wg.Wait()
}

func (cfg *config) scanOne(path string) error {
	f, _, err := preCheckFilepath(path)
	if err != nil {
		return err
	}
	_ = f.Close()

	cfg.commit(cfg.scanPath(path))
	return nil
}

func (cfg *config) scanDir() error {
	var paths []string
	err := filepath.Walk(cfg.inCfg.dirPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return fmt.Errorf("error walking directory (%s): %w", cfg.inCfg.dirPath, err)
		}
		// If info comes back as nil we don't want to read it or we panic.
		if info == nil || info.IsDir() {
			return nil
		}
		// Only check regular files. Checking devices, etc. won't work.
		if !info.Mode().IsRegular() {
			return nil
		}
		if !hasBinaryExt(path) {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return err
	}

	cfg.scanAll(paths, cfg.scanPath)
	return nil
}

// scanRemote lists and fetches candidate binaries over SSH, scanning the
// fetched bytes locally. Records are keyed host:path so results from
// several hosts can share one database.
func (cfg *config) scanRemote() error {
	cfg.sshInit()
	defer func() {
		_ = cfg.inCfg.sshConn.Close()
	}()

	paths, err := cfg.inCfg.sshConn.FindBinaries(cfg.inCfg.dirPath, constBinaryExtensions)
	if err != nil {
		return err
	}

	host := cfg.inCfg.sshConfig.Host
	scan := func(p string) *Report {
		data, ferr := cfg.inCfg.sshConn.ReadFile(p)
		if ferr != nil {
			log.Printf("(!) could not fetch %s:%s: %v", host, p, ferr)
			return nil
		}
		return cfg.scanData(host+":"+p, filepath.Base(p), data)
	}

	// All fetches share one connection, so pooling buys nothing here.
	cfg.goFast = false
	cfg.scanAll(paths, scan)
	return nil
}

func (cfg *config) sshInit() {
	sshCfg := &cfg.inCfg.sshConfig

	conn := ssh.New(sshCfg.Host, sshCfg.User).
		WithPort(sshCfg.Port).WithTimeout(sshCfg.Timeout).
		WithVerbose(cfg.verbose)

	if sshCfg.Agent {
		conn = conn.WithAgent()
	}
	if sshCfg.KeyFile != "" {
		conn = conn.WithKeyFile(sshCfg.KeyFile)
	}
	if sshCfg.Passwd != "" {
		conn = conn.WithPassword(sshCfg.Passwd)
	}
	if sshCfg.AskPass {
		conn = conn.WithPromptedPassword()
	}

	if err := conn.Connect(); err != nil {
		log.Fatalf("error connecting to SSH host (%s): %v", sshCfg.Host, err)
	}

	cfg.inCfg.sshConn = conn
}

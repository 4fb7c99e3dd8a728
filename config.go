package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/petriage/petriage/pkg/ssh"
	"github.com/petriage/petriage/pkg/store"
	"github.com/petriage/petriage/pkg/verinfo"
)

type outputConfig struct {
	delimChar           string
	csvOutput           bool
	jsonOutput          bool
	printInterimResults bool
	outputFile          string
}

type sshConfig struct {
	Host    string
	User    string
	Passwd  string
	AskPass bool
	KeyFile string
	Port    int
	Agent   bool
	Timeout time.Duration
}

type inputConfig struct {
	filePath string
	dirPath  string

	sshConfig sshConfig

	sshConn *ssh.Client
}

type config struct {
	dbPath string

	inCfg  inputConfig
	outCfg outputConfig

	hashers []HashType

	version bool
	verbose bool
	goFast  bool

	results *Results

	store     *store.Store
	verSource verinfo.Source

	printSync  sync.Mutex
	upsertSync sync.Mutex
}

var cfgOnce sync.Once

func (cfg *config) parseFlags(args []string) {
	sumMD5, sumSHA1, sumSHA256, sumSHA512 := false, false, false, false

	var hashAlgos = map[*bool]HashType{
		&sumMD5:    HashTypeMD5,
		&sumSHA1:   HashTypeSHA1,
		&sumSHA256: HashTypeSHA256,
		&sumSHA512: HashTypeSHA512,
	}

	flag.StringVar(&cfg.inCfg.filePath, "file", "", "full path to a single binary to analyze")
	flag.StringVar(&cfg.inCfg.dirPath, "dir", "", "directory to analyze recursively ("+strings.Join(constBinaryExtensions, ", ")+")")
	flag.StringVar(&cfg.dbPath, "db", constStoreNameDefault, "path to the SQLite results database")
	flag.StringVar(&cfg.outCfg.delimChar, "delim", constDelimeterDefault, "delimeter for CSV output")
	flag.StringVar(&cfg.outCfg.outputFile, "output", "", "output file to write results to (default stdout) (only json and csv formats supported)")

	flag.BoolVar(&cfg.outCfg.csvOutput, "csv", false, "output scan results in CSV format")
	flag.BoolVar(&cfg.outCfg.jsonOutput, "json", false, "output scan results in JSON format")
	flag.BoolVar(&cfg.outCfg.printInterimResults, "print", false, "print interim results to stdout even if output file is specified")
	flag.BoolVar(&cfg.version, "version", false, "show version and exit")
	flag.BoolVar(&cfg.verbose, "v", false, "verbose logging")

	flag.BoolVar(&sumMD5, "md5", false, "calculate and show MD5 checksum of file(s)")
	flag.BoolVar(&sumSHA1, "sha1", false, "calculate and show SHA1 checksum of file(s)")
	flag.BoolVar(&sumSHA256, "sha256", false, "calculate and show SHA256 checksum of file(s)")
	flag.BoolVar(&sumSHA512, "sha512", false, "calculate and show SHA512 checksum of file(s)")

	flag.StringVar(&cfg.inCfg.sshConfig.Host, "ssh-host", "", "SSH host to scan")
	flag.StringVar(&cfg.inCfg.sshConfig.User, "ssh-user", "", "SSH user name")
	flag.StringVar(&cfg.inCfg.sshConfig.Passwd, "ssh-pass", "", "SSH password")
	flag.BoolVar(&cfg.inCfg.sshConfig.AskPass, "ssh-ask-pass", false, "prompt for the SSH password on the terminal")
	flag.StringVar(&cfg.inCfg.sshConfig.KeyFile, "ssh-key", "", "SSH private key file")
	flag.DurationVar(&cfg.inCfg.sshConfig.Timeout, "ssh-timeout", 30*time.Second, "SSH connection timeout")
	flag.IntVar(&cfg.inCfg.sshConfig.Port, "ssh-port", ssh.DefaultPort, "SSH port")
	flag.BoolVar(&cfg.inCfg.sshConfig.Agent, "ssh-agent", false, "use SSH agent")

	flag.BoolVar(&cfg.goFast, "fast", false, "use worker pool for concurrent file processing (experimental)")

	_ = flag.CommandLine.Parse(args)

	for k, v := range hashAlgos {
		if *k {
			cfg.hashers = append(cfg.hashers, v)
		}
	}
}

func newConfigFromFlags(args []string) *config {
	cfg := new(config)
	cfg.hashers = make([]HashType, 0, 4)
	cfg.verSource = verinfo.NewSource()

	cfgOnce.Do(func() { cfg.parseFlags(args) })

	if cfg.version {
		fmt.Printf("%s Version %s\n", constProjectName, constVersion)
		os.Exit(0)
	}

	inputs := 0
	for _, set := range []bool{
		cfg.inCfg.filePath != "",
		cfg.inCfg.dirPath != "" && cfg.inCfg.sshConfig.Host == "",
		cfg.inCfg.sshConfig.Host != "",
	} {
		if set {
			inputs++
		}
	}

	switch {
	case inputs == 0:
		log.Fatal("one of -file, -dir, or -ssh-host is required")
	case inputs > 1:
		log.Fatal("only one of -file, -dir, or -ssh-host can be specified")
	}

	sshCfg := &cfg.inCfg.sshConfig
	if sshCfg.Host != "" {
		if sshCfg.User == "" {
			log.Fatal("ssh-host requires ssh-user")
		}
		if cfg.inCfg.dirPath == "" {
			log.Fatal("ssh-host requires -dir (remote directory to scan)")
		}
		if !sshCfg.Agent && sshCfg.KeyFile == "" && sshCfg.Passwd == "" && !sshCfg.AskPass {
			log.Fatal("ssh mode requires ssh-key, ssh-pass, ssh-ask-pass, or ssh-agent")
		}
	}

	return cfg
}

package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
)

func (cfg *config) printResults(rep *Report) {
	switch {
	case (cfg.outCfg.csvOutput || cfg.outCfg.jsonOutput) && cfg.outCfg.outputFile == "":
		cfg.results.Add(rep)
	case (cfg.outCfg.csvOutput || cfg.outCfg.jsonOutput) && cfg.outCfg.outputFile != "":
		cfg.results.Add(rep)
		fallthrough
	case cfg.outCfg.printInterimResults:
		str := fmt.Sprintf("filename: %s\npath: %s\npe: %v\nentropy: %.4f\n",
			rep.Name,
			rep.Path,
			rep.IsPE,
			rep.Entropy,
		)
		rec := rep.Record
		switch {
		case rec.SectionsErr != "":
			str += "sections: error: " + rec.SectionsErr + "\n"
		case rec.AvgEntropy != nil:
			str += fmt.Sprintf("avg section entropy: %.4f\n", *rec.AvgEntropy)
		}
		if rec.CompanyName != nil {
			str += "company: " + *rec.CompanyName + "\n"
		}
		if rec.ProductName != nil {
			str += "product: " + *rec.ProductName + "\n"
		}
		for _, ht := range cfg.hashers {
			str += fmt.Sprintf("%s: %s\n", ht.String(), rep.Checksums.Get(ht))
		}
		fmt.Print(str + "\n")
	}
}

func (cfg *config) output() {
	var res []byte
	switch {
	case cfg.outCfg.csvOutput:
		var err error
		if res, err = cfg.results.MarshalCSV(); err != nil {
			log.Fatal(err.Error())
		}
	case cfg.outCfg.jsonOutput:
		var err error
		if res, err = json.Marshal(cfg.results); err != nil {
			log.Fatal(err.Error())
		}
	default:
	}
	if len(res) > 0 {
		switch {
		case cfg.outCfg.outputFile != "":
			if err := os.WriteFile(cfg.outCfg.outputFile, res, 0644); err != nil {
				log.Fatal(err.Error())
			}
		default:
			_, _ = os.Stdout.Write(res)
		}
	}
}

// dynalocal runs an in-memory DynamoDB-compatible server for local
// development and tests.
//
// # Usage
//
//	dynalocal [flags]
//
// # Flags
//
//	--addr    Listen address (default :8000, overrides config)
//	--config  Path to a dynalocal.yaml config file
//
// Tables can be seeded from dynalocal.yaml so clients skip CreateTable:
//
//	addr: ":8000"
//	tables:
//	  - name: users
//	    hashKey: {name: pk, type: S}
//	    rangeKey: {name: sk, type: S}
//	    globalIndexes:
//	      - name: by-email
//	        hashKey: {name: email, type: S}
package main

import (
	"flag"
	"log"

	"dynalocal/ddbstore"
	"dynalocal/server"
	"dynalocal/table"
)

const defaultAddr = ":8000"

func main() {
	addr := flag.String("addr", "", "listen address (overrides config)")
	configPath := flag.String("config", "", "path to dynalocal.yaml")
	flag.Parse()

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("dynalocal: %v", err)
	}
	if *addr != "" {
		cfg.Addr = *addr
	}
	if cfg.Addr == "" {
		cfg.Addr = defaultAddr
	}

	defs := make([]table.TableDefinition, 0, len(cfg.Tables))
	for _, tc := range cfg.Tables {
		def, err := tc.Definition()
		if err != nil {
			log.Fatalf("dynalocal: %v", err)
		}
		defs = append(defs, def)
		log.Printf("seeded table %s", def.Name)
	}

	srv := server.New(ddbstore.New(defs...))
	if err := srv.Run(cfg.Addr); err != nil {
		log.Fatalf("dynalocal: %v", err)
	}
}

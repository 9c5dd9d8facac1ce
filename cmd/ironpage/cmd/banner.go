package cmd

import (
	"fmt"
	"io"
)

const banner = `
  _____                 _____                 
 |_   _|               |  __ \                
   | |  _ __ ___  _ __ | |__) |_ _  __ _  ___ 
   | | | '__/ _ \| '_ \|  ___/ _` + "`" + ` |/ _` + "`" + ` |/ _ \
  _| |_| | | (_) | | | | |  | (_| | (_| |  __/
 |_____|_|  \___/|_| |_|_|   \__,_|\__, |\___|
                                    __/ |     
                                   |___/      
`

func printBanner(w io.Writer) {
	fmt.Fprintf(w, "\x1b[34m%s\x1b[0m", banner)
	fmt.Fprintf(w, "\x1b[32m  Hardened Page Server - Version %s\x1b[0m\n\n", Version)
}

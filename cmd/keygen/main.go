// Command keygen generates key material for the vault.
package main

import (
	"crypto/rand"
	"encoding/base64"
	"flag"
	"fmt"
	"log"
)

func main() {
	id := flag.String("id", "", "key id label to print alongside the key")
	flag.Parse()

	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		log.Fatalf("generate key: %v", err)
	}

	fmt.Printf("TOKEN_ENCRYPTION_KEY=%s\n", base64.StdEncoding.EncodeToString(key))
	if *id != "" {
		fmt.Printf("TOKEN_ENCRYPTION_KEY_ID=%s\n", *id)
	}
}

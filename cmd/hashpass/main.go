// Command hashpass prints an argon2id hash for INTERVIEWER_PASSWORD_HASH.
//
//	go run ./cmd/hashpass 's3cret'
package main

import (
	"fmt"
	"os"

	httpserver "github.com/fairyhunter13/ai-interview-assistant/internal/adapter/httpserver"
)

func main() {
	if len(os.Args) != 2 || os.Args[1] == "" {
		fmt.Fprintln(os.Stderr, "usage: hashpass <password>")
		os.Exit(2)
	}
	hash, err := httpserver.HashPassword(os.Args[1], httpserver.DefaultArgon2Params)
	if err != nil {
		fmt.Fprintln(os.Stderr, "hash failed:", err)
		os.Exit(1)
	}
	fmt.Println(hash)
}

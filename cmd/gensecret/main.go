package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/pflag"
)

const SecretKeyBytesLen = 32

// Prints random hex encoded key suitable for SECRET_KEY
func main() {
	size := pflag.IntP("bytes", "b", SecretKeyBytesLen, "Number of random bytes in the key")
	pflag.Parse()

	if *size <= 0 {
		fmt.Fprintln(os.Stderr, "bytes must be positive")
		os.Exit(2)
	}

	b := make([]byte, *size)

	_, err := rand.Read(b)
	if err != nil {
		fmt.Printf("error while generating secret key: %v", err)
		os.Exit(1)
	}

	fmt.Println(hex.EncodeToString(b))
}

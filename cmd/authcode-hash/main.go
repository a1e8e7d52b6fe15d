// Command authcode-hash hashes and checks passwords with the same argon2id
// parameters authcode uses, for seeding fixtures and migration scripts.
//
//	authcode-hash -secret 'correct-horse'
//	authcode-hash -secret 'correct-horse' -check '$argon2id$v=19$...'
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/jpscaletti/authcode/password"
)

func main() {
	var (
		secret      = flag.String("secret", "", "secret to hash; read from stdin when empty")
		check       = flag.String("check", "", "encoded hash to verify the secret against instead of hashing")
		memory      = flag.Uint("memory", 65536, "argon2 memory cost in KB")
		timeCost    = flag.Uint("time", 3, "argon2 time cost")
		parallelism = flag.Uint("parallelism", 2, "argon2 parallelism")
	)
	flag.Parse()

	s := *secret
	if s == "" {
		reader := bufio.NewReader(os.Stdin)
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			fmt.Fprintln(os.Stderr, "no secret on stdin")
			os.Exit(2)
		}
		s = strings.TrimRight(line, "\r\n")
	}

	hasher, err := password.NewArgon2(password.Config{
		Memory:      uint32(*memory),
		Time:        uint32(*timeCost),
		Parallelism: uint8(*parallelism),
		SaltLength:  16,
		KeyLength:   32,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "bad parameters: %v\n", err)
		os.Exit(2)
	}

	if *check != "" {
		if !hasher.Verify(s, *check) {
			fmt.Println("no match")
			os.Exit(1)
		}
		fmt.Println("match")
		if hasher.NeedsRehash(*check) {
			fmt.Println("(hash uses weaker parameters than requested; rehash recommended)")
		}
		return
	}

	encoded, err := hasher.Hash(s)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hash failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(encoded)
}

package main

import (
	"flag"
	"fmt"
	"log"
	"strings"

	"freelanceDesk/internal/auth"
)

func main() {
	var (
		label = flag.String("label", "", "密钥用途说明（可选，仅用于输出）")
		key   = flag.String("key", "", "对已有密钥计算哈希（可选，默认生成新密钥）")
	)
	flag.Parse()

	plain := strings.TrimSpace(*key)
	if plain == "" {
		generated, err := auth.GenerateAPIKey()
		if err != nil {
			log.Fatalf("generate api key: %v", err)
		}
		plain = generated
	}

	hashed, err := auth.HashAPIKey(plain)
	if err != nil {
		log.Fatalf("hash api key: %v", err)
	}

	if l := strings.TrimSpace(*label); l != "" {
		fmt.Printf("用途: %s\n", l)
	}
	fmt.Printf("API Key: %s\n", plain)
	fmt.Printf("指纹: %s\n", auth.Fingerprint(plain))
	fmt.Printf("哈希: %s\n", hashed)
	fmt.Printf("提示：把哈希追加到 WEBHOOK_API_KEY_HASHES（逗号分隔），API Key 仅显示一次。\n")
}

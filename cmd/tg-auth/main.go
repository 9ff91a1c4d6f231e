package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/gotd/td/session"
	"github.com/joho/godotenv"

	"github.com/blockedby/grouppulse/internal/config"
	"github.com/blockedby/grouppulse/internal/telegram"
)

func main() {
	_ = godotenv.Load()

	fmt.Println("=== telegram auth tool ===")
	fmt.Println("this tool generates a session token for grouppulse")
	fmt.Println()

	reader := bufio.NewReader(os.Stdin)
	apiID, apiHash := getAPICredentials(reader)

	cfg := &config.Config{TGApiID: apiID, TGApiHash: apiHash}
	store := &session.StorageMemory{}
	manager := telegram.NewManager(cfg, store)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fmt.Println("\nauthenticating... (check telegram for code)")
	if err := manager.Connect(ctx, telegram.NewTerminalPrompter()); err != nil {
		fmt.Printf("error: %v\n", err)
		os.Exit(1)
	}

	token, err := telegram.ExportSessionToken(ctx, store)
	if err != nil {
		fmt.Printf("error exporting session: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("\n✓ authentication successful!")
	fmt.Println("\nyour session token:")
	fmt.Println("---")
	fmt.Println(token)
	fmt.Println("---")
	fmt.Println("\nadd this to your .env file as TG_SESSION_STRING")
	fmt.Println("\n⚠️  keep this secret! it provides full access to your telegram account")
}

// getAPICredentials reads API ID and Hash from env or prompts user
func getAPICredentials(reader *bufio.Reader) (int, string) {
	apiIDStr := os.Getenv("TG_API_ID")
	apiHash := os.Getenv("TG_API_HASH")

	if apiIDStr == "" {
		fmt.Print("enter your api_id (from https://my.telegram.org): ")
		apiIDStr, _ = reader.ReadString('\n')
		apiIDStr = strings.TrimSpace(apiIDStr)
	}
	if apiHash == "" {
		fmt.Print("enter your api_hash: ")
		apiHash, _ = reader.ReadString('\n')
		apiHash = strings.TrimSpace(apiHash)
	}

	apiID, err := strconv.Atoi(apiIDStr)
	if err != nil {
		fmt.Printf("error: invalid api_id: %v\n", err)
		os.Exit(1)
	}

	return apiID, apiHash
}

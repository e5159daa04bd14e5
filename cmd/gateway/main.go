// Command gateway はMuse Dinnersのwebゲートウェイサーバーを起動する。
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/musedinners/gateway/internal/app"
)

func main() {
	// ローカル開発用に.envがあれば読み込む（無ければ何もしない）
	_ = godotenv.Load()

	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

package main

import (
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"contactbot/bot"
	"contactbot/core/cmd"
)

func main() {
	_ = godotenv.Load()

	err := cmd.Run(cmd.Options{
		ConfigEnvVar:      "CONFIG_PATH",
		DefaultConfigPath: "config.yml",
		LoadConfig: func(path string) (cmd.ConfigCarrier, error) {
			return bot.LoadConfig(path)
		},
		Bootstrap: func(carrier cmd.ConfigCarrier) (cmd.TelegramApp, error) {
			cfg, ok := carrier.(*bot.Config)
			if !ok {
				return nil, fmt.Errorf("unexpected config type %T", carrier)
			}
			return bot.New(cfg)
		},
	})
	if err != nil {
		log.Fatalf("contactbot: %v", err)
	}
}

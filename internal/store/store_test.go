package store

import "github.com/bK777741/yt-pipeline-cron-sub000/internal/config"

func configFor(driver, url string) config.StoreConfig {
	return config.StoreConfig{Driver: driver, DatabaseURL: url}
}

// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package config

import (
	"log"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Application config structure
type AppConfig struct {
	Name     string `mapstructure:"service_name" validate:"required"`
	Version  string `mapstructure:"version" validate:"required"`
	LogLevel string `mapstructure:"log_level" validate:"required"`
	LogPath  string `mapstructure:"log_path"`

	// storage
	DataDir         string `mapstructure:"data_dir" validate:"required"`
	RemovableDir    string `mapstructure:"removable_dir"`
	StorageLocation string `mapstructure:"storage_location" validate:"oneof=internal removable"`
	DatabaseFile    string `mapstructure:"database_file" validate:"required"`

	// recording
	RecordingQuality string `mapstructure:"recording_quality" validate:"oneof=low medium high"`
	RecycleBinDays   int    `mapstructure:"recycle_bin_days" validate:"min=1"`

	// transcription
	AutoTranscribe        bool   `mapstructure:"auto_transcribe"`
	TranscriptionLanguage string `mapstructure:"transcription_language" validate:"required"`

	// chat/LLM collaborator (downstream of the engine)
	ChatProvider string `mapstructure:"chat_provider"`
	ChatModel    string `mapstructure:"chat_model"`
	ChatAPIKey   string `mapstructure:"chat_api_key"`
}

// DatabasePath resolves the sqlite file under the data directory.
func (c *AppConfig) DatabasePath() string {
	if filepath.IsAbs(c.DatabaseFile) {
		return c.DatabaseFile
	}
	return filepath.Join(c.DataDir, c.DatabaseFile)
}

// reading config and intializing configs for application
func InitConfig() (*viper.Viper, error) {
	vConfig := viper.NewWithOptions(viper.KeyDelimiter("__"))

	vConfig.AddConfigPath(".")
	vConfig.SetConfigName(".env")
	path := os.Getenv("ENV_PATH")
	if path != "" {
		log.Printf("env path %v", path)
		vConfig.SetConfigFile(path)
	}
	vConfig.SetConfigType("env")
	vConfig.AutomaticEnv()

	setDefault(vConfig)
	if err := vConfig.ReadInConfig(); err != nil && !os.IsNotExist(err) {
		log.Printf("Reading from env varaibles.")
	}

	return vConfig, nil
}

func setDefault(v *viper.Viper) {
	// setting all default values
	v.SetDefault("SERVICE_NAME", "voicevault")
	v.SetDefault("VERSION", "0.0.1")
	v.SetDefault("LOG_LEVEL", "debug")
	v.SetDefault("LOG_PATH", "")

	home, _ := os.UserHomeDir()
	v.SetDefault("DATA_DIR", filepath.Join(home, ".voicevault"))
	v.SetDefault("REMOVABLE_DIR", "")
	v.SetDefault("STORAGE_LOCATION", "internal")
	v.SetDefault("DATABASE_FILE", "voicevault.db")

	v.SetDefault("RECORDING_QUALITY", "medium")
	v.SetDefault("RECYCLE_BIN_DAYS", 30)

	v.SetDefault("AUTO_TRANSCRIBE", false)
	v.SetDefault("TRANSCRIPTION_LANGUAGE", "en")

	v.SetDefault("CHAT_PROVIDER", "gemini")
	v.SetDefault("CHAT_MODEL", "")
	v.SetDefault("CHAT_API_KEY", "")
}

// Getting application config from viper
func GetApplicationConfig(v *viper.Viper) (*AppConfig, error) {
	var config AppConfig
	err := v.Unmarshal(&config)
	if err != nil {
		log.Printf("%+v\n", err)
		return nil, err
	}

	// valdating the app config
	validate := validator.New()
	err = validate.Struct(&config)
	if err != nil {
		log.Printf("%+v\n", err)
		return nil, err
	}
	return &config, nil
}

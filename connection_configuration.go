// Copyright (c) 2024 Snowflake Computing Inc. All rights reserved.

package gopresto

import (
	"os"
	path "path/filepath"
	"runtime"

	toml "github.com/BurntSushi/toml"
)

const (
	prestoHomeEnv              = "PRESTO_HOME"
	prestoDefaultConnectionEnv = "PRESTO_DEFAULT_CONNECTION_NAME"
	connectionsFileName        = "connections.toml"
	defaultConnectionName      = "default"
)

// LoadConnectionConfig returns the connection config loaded from the toml file.
// By default, PRESTO_HOME (directory of connections.toml) is ~/.presto
// and PRESTO_DEFAULT_CONNECTION_NAME is 'default'.
func LoadConnectionConfig() (*Config, error) {
	return LoadNamedConnectionConfig("")
}

// LoadNamedConnectionConfig is LoadConnectionConfig for the given connection
// name. An empty name selects PRESTO_DEFAULT_CONNECTION_NAME, then 'default'.
func LoadNamedConnectionConfig(name string) (*Config, error) {
	if name == "" {
		name = getConnectionName(os.Getenv(prestoDefaultConnectionEnv))
	}
	configDir, err := getTomlFilePath(os.Getenv(prestoHomeEnv))
	if err != nil {
		return nil, err
	}
	tomlFilePath := path.Join(configDir, connectionsFileName)
	if err = validateFilePermission(tomlFilePath); err != nil {
		return nil, err
	}
	tomlInfo := make(map[string]interface{})
	if _, err = toml.DecodeFile(tomlFilePath, &tomlInfo); err != nil {
		return nil, err
	}
	connection, exist := tomlInfo[name]
	if !exist {
		return nil, ErrFailedToFindDSNInToml.withArgs(name)
	}
	connectionConfig, ok := connection.(map[string]interface{})
	if !ok {
		return nil, ErrFailedToFindDSNInToml.withArgs(name)
	}
	cfg := &Config{}
	if err = parseToml(cfg, connectionConfig); err != nil {
		return nil, err
	}
	logger.Debugf("loaded connection %q from %v", name, tomlFilePath)
	return cfg, nil
}

func parseToml(cfg *Config, connection map[string]interface{}) error {
	for _, key := range sortedParamKeys(connection) {
		value := connection[key]
		switch key {
		case "session_properties", "prepared_statements":
			table, ok := value.(map[string]interface{})
			if !ok {
				return ErrTomlFileParsingFailed.withArgs(key, value)
			}
			prefix := sessionParamPrefix
			if key == "prepared_statements" {
				prefix = preparedParamPrefix
			}
			for _, name := range sortedParamKeys(table) {
				if err := setConfigParam(cfg, prefix+name, table[name]); err != nil {
					return ErrTomlFileParsingFailed.withArgs(key+"."+name, table[name])
				}
			}
			continue
		}
		if err := setConfigParam(cfg, key, value); err != nil {
			return ErrTomlFileParsingFailed.withArgs(key, value)
		}
	}
	return nil
}

func getTomlFilePath(filePath string) (string, error) {
	if len(filePath) != 0 {
		if path.IsAbs(filePath) {
			return filePath, nil
		}
	} else {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		filePath = path.Join(homeDir, ".presto")
	}
	return path.Abs(filePath)
}

func getConnectionName(name string) string {
	if len(name) != 0 {
		return name
	}
	return defaultConnectionName
}

// validateFilePermission rejects files writable by group or others, since
// they may carry credentials.
func validateFilePermission(filePath string) error {
	if runtime.GOOS == "windows" {
		return nil
	}
	fileInfo, err := os.Stat(filePath)
	if err != nil {
		return err
	}
	if permission := fileInfo.Mode().Perm(); permission&0o022 != 0 {
		return ErrInvalidFilePermission.withArgs(filePath, permission)
	}
	return nil
}

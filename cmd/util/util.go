package util

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/UndeffinedDev/Indexa/lib/engine"
	"github.com/UndeffinedDev/Indexa/lib/engine/bolt"
	"github.com/UndeffinedDev/Indexa/lib/indexa"
	"github.com/UndeffinedDev/Indexa/lib/logger"
	"github.com/UndeffinedDev/Indexa/lib/serializer"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		// Add the word
		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	// Add any remaining text
	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// SetupDatabaseFlags adds the common database flags to a command
func SetupDatabaseFlags(cmd *cobra.Command) {
	key := "data-dir"
	cmd.PersistentFlags().String(key, ".", WrapString("Directory holding the database files"))

	key = "db"
	cmd.PersistentFlags().String(key, "indexa", WrapString("Name of the database to open"))

	key = "db-version"
	cmd.PersistentFlags().Uint64(key, 1, WrapString("Database version to open; raising it creates stores missing from the schema"))

	key = "schema"
	cmd.PersistentFlags().String(key, "{}", WrapString("Store schema as JSON, e.g. {\"users\":{\"key_path\":\"id\",\"auto_increment\":true}}"))
}

// InitConfig initializes configuration from environment variables
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("indexa")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// GetSerializer creates a serializer based on configuration
func GetSerializer() (serializer.ISerializer, error) {
	switch viper.GetString("serializer") {
	case "json":
		return serializer.NewJSONSerializer(), nil
	case "gob":
		return serializer.NewGOBSerializer(), nil
	default:
		return nil, fmt.Errorf("invalid serializer %s", viper.GetString("serializer"))
	}
}

// GetSchema parses the declared store schema from configuration
func GetSchema() (indexa.Schema, error) {
	var schema indexa.Schema
	if err := json.Unmarshal([]byte(viper.GetString("schema")), &schema); err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}
	return schema, nil
}

// OpenDatabase creates the access layer for the configured database
func OpenDatabase() (*indexa.Database, error) {
	if viper.GetBool("debug") {
		indexa.SetDebug(true)
	}
	if level := viper.GetString("log-level"); level != "" {
		parsed, err := logger.ParseLogLevel(level)
		if err != nil {
			return nil, err
		}
		logger.GetLogger("indexa").SetLevel(parsed)
	}

	s, err := GetSerializer()
	if err != nil {
		return nil, err
	}
	schema, err := GetSchema()
	if err != nil {
		return nil, err
	}

	eng := bolt.NewEngine(bolt.Options{Dir: viper.GetString("data-dir")})
	return indexa.New(
		eng,
		viper.GetString("db"),
		viper.GetUint64("db-version"),
		schema,
		indexa.WithSerializer(s),
	), nil
}

// ParseKey converts a command line argument into a record key: plain
// non-negative integers become numeric keys, everything else a string key
func ParseKey(arg string) engine.Key {
	if n, err := strconv.ParseUint(arg, 10, 64); err == nil {
		return engine.UintKey(n)
	}
	return engine.StringKey(arg)
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

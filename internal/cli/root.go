package cli

import (
	"os"
	"runtime"
	"sync"

	"github.com/spf13/cobra"
)

// GlobalFlags contains global flags available for all commands
type GlobalFlags struct {
	Config  string
	DBPath  string
	Verbose bool
}

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "ytcompanion",
	Short: "YouTube Companion Dashboard - channel management API",
	Long: `YouTube Companion Dashboard is the backend for managing a YouTube
channel: OAuth sign-in, video metadata editing, comment moderation,
per-video improvement notes, and AI-assisted title and description
suggestions.

Usage:
  ytcompanion [command] [flags]

Available Commands:
  serve      Start the API server (main mode)
  doctor     Diagnose configuration and database issues
  version    Print version information

Flags:
  --config string   Path to configuration file (default "config.yaml")
  --db string       Path to SQLite database (default "./data/ytcompanion.db")
  --verbose         Enable verbose output

Use "ytcompanion [command] --help" for more information about a command.`,
}

var (
	rootInitialized bool
	rootInitMutex   sync.Mutex
)

// InitRoot initializes the root command with global flags
func InitRoot() {
	rootInitMutex.Lock()
	defer rootInitMutex.Unlock()

	if rootInitialized {
		return
	}
	rootInitialized = true

	configPath := os.Getenv("YTCOMPANION_CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	dbPath := os.Getenv("YTCOMPANION_DB_PATH")
	if dbPath == "" {
		dbPath = "./data/ytcompanion.db"
	}

	RootCmd.PersistentFlags().StringVar(&globalFlags.Config, "config", configPath, "Path to configuration file")
	RootCmd.PersistentFlags().StringVar(&globalFlags.DBPath, "db", dbPath, "Path to SQLite database")
	RootCmd.PersistentFlags().BoolVarP(&globalFlags.Verbose, "verbose", "v", false, "Enable verbose output")

	RootCmd.AddCommand(versionCmd)
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		printVersion()
	},
}

var globalFlags GlobalFlags

// GetGlobalFlags returns the global flags
func GetGlobalFlags() GlobalFlags {
	return globalFlags
}

// printVersion prints the version information
func printVersion() {
	info := GetVersionInfo()
	println("YouTube Companion Dashboard Version:", info.Version)
	println("Go Version:", info.GoVersion)
	println("OS/Arch:", info.OS+"/"+info.Arch)
}

// VersionInfo contains version information
type VersionInfo struct {
	Version   string
	GoVersion string
	OS        string
	Arch      string
}

// GetVersionInfo returns version information
func GetVersionInfo() VersionInfo {
	return VersionInfo{
		Version:   "0.1.0",
		GoVersion: runtime.Version(),
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

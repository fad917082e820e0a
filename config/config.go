package config

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// DatabasePort is fixed; it is not exposed as a flag or env var.
const DatabasePort = 5432

// Config holds all settings for one harvest run. It is built once, by
// Default/Load/Parse, and then passed down by value.
type Config struct {
	DatabaseHost     string
	DatabaseName     string
	DatabaseUser     string
	DatabasePassword string
	DatabaseDriver   string
	DatabaseSSLMode  string

	StartDate string
	EndDate   string

	FTPHost    string
	FTPDir     string
	FilePrefix string
	LocalFile  string

	RawTable   string
	StatsTable string

	SampleCSVPath string
	SampleSize    int

	LogLevel string
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		DatabaseHost:     "localhost",
		DatabaseName:     "gro",
		DatabaseUser:     "gro",
		DatabasePassword: "gro123",
		DatabaseDriver:   "postgres",
		DatabaseSSLMode:  "disable",

		StartDate: "2005-1-1",
		EndDate:   "2015-12-31",

		FTPHost:    "ftp.nass.usda.gov:21",
		FTPDir:     "quickstats",
		FilePrefix: "qs.crops_",
		LocalFile:  "nass_crops.csv.gz",

		RawTable:   "fact_data",
		StatsTable: "stats",

		SampleSize: 10,
		LogLevel:   "info",
	}
}

// Load reads the .env file (if any) and overlays environment variables on
// top of Default.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	d := Default()
	return Config{
		DatabaseHost:     getEnv("DATABASE_HOST", d.DatabaseHost),
		DatabaseName:     getEnv("DATABASE_NAME", d.DatabaseName),
		DatabaseUser:     getEnv("DATABASE_USER", d.DatabaseUser),
		DatabasePassword: getEnv("DATABASE_PASSWORD", d.DatabasePassword),
		DatabaseDriver:   getEnv("DATABASE_DRIVER", d.DatabaseDriver),
		DatabaseSSLMode:  getEnv("DATABASE_SSLMODE", d.DatabaseSSLMode),

		StartDate: getEnv("START_DATE", d.StartDate),
		EndDate:   getEnv("END_DATE", d.EndDate),

		FTPHost:    getEnv("FTP_HOST", d.FTPHost),
		FTPDir:     getEnv("FTP_DIR", d.FTPDir),
		FilePrefix: getEnv("FILE_PREFIX", d.FilePrefix),
		LocalFile:  getEnv("LOCAL_FILE", d.LocalFile),

		RawTable:   d.RawTable,
		StatsTable: d.StatsTable,

		SampleCSVPath: getEnv("SAMPLE_CSV_PATH", d.SampleCSVPath),
		SampleSize:    getEnvInt("SAMPLE_SIZE", d.SampleSize),

		LogLevel: getEnv("LOG_LEVEL", d.LogLevel),
	}
}

// Parse applies command-line flags on top of base and returns the result.
// Usage and flag errors are written to out. When -h is given the returned
// error is flag.ErrHelp.
func Parse(base Config, args []string, out io.Writer) (Config, error) {
	cfg := base

	fs := flag.NewFlagSet("nass-harvest", flag.ContinueOnError)
	fs.SetOutput(out)
	fs.StringVar(&cfg.DatabaseHost, "database_host", base.DatabaseHost, "database host")
	fs.StringVar(&cfg.DatabaseName, "database_name", base.DatabaseName, "database name (created if missing)")
	fs.StringVar(&cfg.DatabaseUser, "database_user", base.DatabaseUser, "database user")
	fs.StringVar(&cfg.DatabasePassword, "database_pass", base.DatabasePassword, "database password")
	fs.StringVar(&cfg.StartDate, "start_date", base.StartDate, "first harvested date, YYYY-M-D")
	fs.StringVar(&cfg.EndDate, "end_date", base.EndDate, "last harvested date, YYYY-M-D")
	fs.Usage = func() {
		fmt.Fprintln(out, "\nHarvests the NASS Quick Stats crops file into a relational database.")
		fmt.Fprintln(out, "\nExample:\n  nass-harvest --database_host localhost --database_name gro2")
		fmt.Fprintf(out, "\nFlags (all optional, database port is fixed at %d):\n", DatabasePort)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return base, err
	}
	if fs.NArg() > 0 {
		err := fmt.Errorf("config: unexpected argument %q", fs.Arg(0))
		fmt.Fprintln(out, err)
		fs.Usage()
		return base, err
	}
	return cfg, nil
}

// DSN returns the lib/pq connection string for the target database.
func (c Config) DSN() string {
	return c.dsn(c.DatabaseName)
}

// ServerDSN returns a connection string for the server's maintenance
// database, used to create the target database.
func (c Config) ServerDSN() string {
	return c.dsn("postgres")
}

func (c Config) dsn(dbname string) string {
	return "host=" + quoteDSN(c.DatabaseHost) +
		" port=" + strconv.Itoa(DatabasePort) +
		" user=" + quoteDSN(c.DatabaseUser) +
		" password=" + quoteDSN(c.DatabasePassword) +
		" dbname=" + quoteDSN(dbname) +
		" sslmode=" + quoteDSN(c.DatabaseSSLMode)
}

// quoteDSN quotes a key/value DSN value when it contains spaces, quotes or
// backslashes, or is empty.
func quoteDSN(v string) string {
	needs := v == ""
	for _, r := range v {
		if r == ' ' || r == '\'' || r == '\\' {
			needs = true
			break
		}
	}
	if !needs {
		return v
	}
	out := make([]rune, 0, len(v)+2)
	out = append(out, '\'')
	for _, r := range v {
		if r == '\'' || r == '\\' {
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(append(out, '\''))
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		log.Printf("[config] Invalid int for %s=%q, using default %d", key, val, fallback)
		return fallback
	}
	return n
}

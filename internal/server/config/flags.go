package config

import (
	"flag"
	"os"
	"time"

	"github.com/rendlabs/rend/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN
//	-s string   JWT HMAC secret key
//	-t int      session token validity, minutes
//	-n int      wallet nonce validity, minutes
//	-r int      password reset token validity, minutes
//	-f string   From address for outbound mail
//	-g string   SES region
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components. Duration
// flags are accepted as integers in minutes.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-s", "-t", "-n", "-r", "-f", "-g"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddr, "a", config.EndpointAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	sessionTokenValidity := fs.Int("t", int(config.SessionTokenValidity.Minutes()), "session_token_validity (in minutes)")
	nonceValidity := fs.Int("n", int(config.NonceValidity.Minutes()), "nonce_validity (in minutes)")
	resetTokenValidity := fs.Int("r", int(config.ResetTokenValidity.Minutes()), "reset_token_validity (in minutes)")

	fs.StringVar(&config.EmailFrom, "f", config.EmailFrom, "From address for outbound mail")
	fs.StringVar(&config.SESRegion, "g", config.SESRegion, "SES region")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.SessionTokenValidity = time.Duration(*sessionTokenValidity) * time.Minute
	config.NonceValidity = time.Duration(*nonceValidity) * time.Minute
	config.ResetTokenValidity = time.Duration(*resetTokenValidity) * time.Minute
}

package main

import (
	"flag"
	"strings"

	"github.com/sealstream/go-sealstream/core"
)

var config struct {
	Verbose  bool
	Codec    string
	Key      string
	Password string
	Keygen   int
	Seal     bool
	Open     bool
	In       string
	Out      string
}

func init() {
	flag.BoolVar(&config.Verbose, "verbose", false, "verbose mode")
	flag.StringVar(&config.Codec, "codec", "aes-256-ctr-hmac", "available codecs: "+strings.Join(core.ListCodecs(), " "))
	flag.StringVar(&config.Key, "key", "", "base64url-encoded key (derive from password if empty)")
	flag.IntVar(&config.Keygen, "keygen", 0, "generate a base64url-encoded random key of given length in byte")
	flag.StringVar(&config.Password, "password", "", "password")
	flag.BoolVar(&config.Seal, "seal", false, "encrypt and authenticate input")
	flag.BoolVar(&config.Open, "open", false, "decrypt input and verify its tag")
	flag.StringVar(&config.In, "in", "", "input file (default stdin)")
	flag.StringVar(&config.Out, "out", "", "output file (default stdout)")
}

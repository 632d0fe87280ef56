package main

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/sealstream/go-sealstream/core"
	"github.com/sealstream/go-sealstream/sealstream"
)

func main() {
	flag.Parse()
	if config.Verbose {
		log.SetLevel(log.DebugLevel)
	}

	if config.Keygen > 0 {
		key := make([]byte, config.Keygen)
		io.ReadFull(rand.Reader, key)
		fmt.Println(base64.URLEncoding.EncodeToString(key))
		return
	}

	if config.Seal == config.Open {
		flag.Usage()
		return
	}

	var key []byte
	if config.Key != "" {
		k, err := base64.URLEncoding.DecodeString(config.Key)
		if err != nil {
			log.Fatal(err)
		}
		key = k
	}

	codec, err := core.PickCodec(config.Codec, key, config.Password)
	if err != nil {
		log.Fatal(err)
	}

	in := io.Reader(os.Stdin)
	if config.In != "" {
		f, err := os.Open(config.In)
		if err != nil {
			log.Fatal(err)
		}
		in = f
	}
	out := io.Writer(os.Stdout)
	if config.Out != "" {
		f, err := os.Create(config.Out)
		if err != nil {
			log.Fatal(err)
		}
		out = f
	}

	if config.Seal {
		err = seal(codec, in, out)
	} else {
		err = open(codec, in, out)
	}

	switch {
	case err == nil:
	case errors.Is(err, sealstream.ErrAuthFailed):
		log.Fatal("authentication failed: the stream was tampered with or the key is wrong; discard any output")
	case errors.Is(err, sealstream.ErrTruncated):
		log.Fatal("stream truncated: header or trailing tag is incomplete")
	default:
		log.Fatal(err)
	}
}

func seal(c core.Codec, in io.Reader, out io.Writer) error {
	w, err := c.NewWriter(out, nil)
	if err != nil {
		return err
	}
	log.Debugf("sealing with nonce %x", w.Nonce())
	if _, err := io.Copy(w, in); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

func open(c core.Codec, in io.Reader, out io.Writer) error {
	r, err := c.NewReader(in)
	if err != nil {
		return err
	}
	n, err := io.Copy(out, r)
	if err != nil {
		r.Close()
		return err
	}
	log.Debugf("decrypted %d bytes, verifying", n)
	// Authenticity is only known at close; everything written so far is
	// provisional until Close returns nil.
	return r.Close()
}

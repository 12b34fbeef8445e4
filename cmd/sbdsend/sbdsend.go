// SPDX-License-Identifier: MIT
//
// Copyright © 2023 Sunstone Advisory Pty Ltd.

// sbdsend sends a message over the Iridium network.
//
// This provides an example of the full send pipeline, including the wait
// for network signal and the collection of any mobile terminated message
// delivered during the session.
package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/sunstone-advisory/iridium-sbd/sbd"
	"github.com/sunstone-advisory/iridium-sbd/serial"
	"github.com/sunstone-advisory/iridium-sbd/trace"
)

func main() {
	dev := flag.String("d", "/dev/ttyUSB0", "path to modem device")
	baud := flag.Int("b", 19200, "baud rate")
	bin := flag.Bool("x", false, "treat the message as hex coded binary")
	compress := flag.Bool("c", false, "compress the message before sending")
	quality := flag.Int("q", 1, "minimum signal quality to attempt the session")
	timeout := flag.Duration("t", 5*time.Minute, "time allowed for the complete send")
	verbose := flag.Bool("v", false, "log modem interactions")
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <message>\n", os.Args[0])
		os.Exit(1)
	}
	msg := flag.Arg(0)
	m, err := serial.New(serial.WithPort(*dev), serial.WithBaud(*baud))
	if err != nil {
		log.Println(err)
		return
	}
	defer m.Close()
	var mio io.ReadWriter = m
	if *verbose {
		mio = trace.New(m)
	}
	s := sbd.New(mio, sbd.WithInboundHandler(func(payload []byte) {
		log.Printf("received: %q", payload)
	}))
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	if err = s.Init(ctx); err != nil {
		log.Println(err)
		return
	}
	options := []sbd.SessionOption{sbd.WithSignalQuality(*quality)}
	if *compress {
		options = append(options, sbd.WithCompression())
	}
	var result sbd.SessionResult
	if *bin {
		var b []byte
		b, err = hex.DecodeString(msg)
		if err != nil {
			log.Println(err)
			return
		}
		result, err = s.SendBinaryMessage(ctx, b, options...)
	} else {
		result, err = s.SendTextMessage(ctx, msg, options...)
	}
	if err != nil {
		log.Printf("send failed: %s", err)
		return
	}
	log.Printf("sent with MOMSN %d: %s", result.MOMSN, result.MOStatusText)
	if result.MTQueued > 0 {
		log.Printf("%d more messages waiting at the gateway", result.MTQueued)
	}
}

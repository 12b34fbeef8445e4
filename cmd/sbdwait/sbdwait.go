// SPDX-License-Identifier: MIT
//
// Copyright © 2023 Sunstone Advisory Pty Ltd.

// sbdwait waits for ring alerts from the gateway and collects the waiting
// messages with a mailbox check, logging them through the standard logger.
//
// This provides an example of using the ring alert and inbound message
// handlers, as well as a test that the library works with the modem.
package main

import (
	"context"
	"flag"
	"io"
	"log"
	"time"

	"github.com/sunstone-advisory/iridium-sbd/sbd"
	"github.com/sunstone-advisory/iridium-sbd/serial"
	"github.com/sunstone-advisory/iridium-sbd/trace"
)

func main() {
	dev := flag.String("d", "", "path to modem device (default: auto-detect)")
	baud := flag.Int("b", 19200, "baud rate")
	period := flag.Duration("p", 10*time.Minute, "period to wait")
	quality := flag.Int("q", 1, "minimum signal quality for mailbox checks")
	verbose := flag.Bool("v", false, "log modem interactions")
	flag.Parse()
	port := *dev
	if port == "" {
		detected, err := serial.Detect("")
		if err != nil {
			log.Println(err)
			return
		}
		port = detected
		log.Printf("using %s", port)
	}
	m, err := serial.New(serial.WithPort(port), serial.WithBaud(*baud))
	if err != nil {
		log.Println(err)
		return
	}
	defer m.Close()
	var mio io.ReadWriter = m
	if *verbose {
		mio = trace.New(m)
	}
	rings := make(chan struct{}, 1)
	s := sbd.New(mio,
		sbd.WithRingHandler(func() {
			select {
			case rings <- struct{}{}:
			default:
			}
		}),
		sbd.WithInboundHandler(func(payload []byte) {
			log.Printf("received: %q", payload)
		}),
	)
	ctx, cancel := context.WithTimeout(context.Background(), *period)
	defer cancel()
	initCtx, initCancel := context.WithTimeout(ctx, 30*time.Second)
	err = s.Init(initCtx)
	initCancel()
	if err != nil {
		log.Println(err)
		return
	}
	for {
		select {
		case <-ctx.Done():
			log.Println("exiting...")
			return
		case <-rings:
			log.Println("ring alert, checking mailbox...")
			result, err := s.MailboxCheck(ctx, sbd.WithSignalQuality(*quality))
			if err != nil {
				log.Printf("mailbox check failed: %s", err)
				continue
			}
			for result.MTQueued > 0 {
				result, err = s.MailboxCheck(ctx, sbd.WithSignalQuality(*quality))
				if err != nil {
					log.Printf("mailbox check failed: %s", err)
					break
				}
			}
		}
	}
}

// SPDX-License-Identifier: MIT
//
// Copyright © 2023 Sunstone Advisory Pty Ltd.

// sbdinfo collects and displays information related to the transceiver and
// its current state.
//
// This serves as an example of how to interact with the modem, as well as
// providing information which may be useful for debugging.
package main

import (
	"context"
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

var version = "undefined"

func main() {
	dev := flag.String("d", "/dev/ttyUSB0", "path to modem device")
	baud := flag.Int("b", 19200, "baud rate")
	timeout := flag.Duration("t", 30*time.Second, "time allowed for initialisation and all queries")
	verbose := flag.Bool("v", false, "log modem interactions")
	vsn := flag.Bool("version", false, "report version and exit")
	flag.Parse()
	if *vsn {
		fmt.Printf("%s %s\n", os.Args[0], version)
		os.Exit(0)
	}
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
	s := sbd.New(mio)
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	if err = s.Init(ctx); err != nil {
		log.Println(err)
		return
	}
	queries := []struct {
		name string
		run  func() (interface{}, error)
	}{
		{"manufacturer", func() (interface{}, error) { return s.Manufacturer(ctx) }},
		{"model", func() (interface{}, error) { return s.Model(ctx) }},
		{"revision", func() (interface{}, error) { return s.Revision(ctx) }},
		{"serial number", func() (interface{}, error) { return s.SerialNumber(ctx) }},
		{"software revision", func() (interface{}, error) { return s.SoftwareRevision(ctx) }},
		{"hardware specification", func() (interface{}, error) { return s.HardwareSpecification(ctx) }},
		{"gateway", func() (interface{}, error) { return s.Gateway(ctx) }},
		{"lock status", func() (interface{}, error) { return s.LockStatus(ctx) }},
		{"registration", func() (interface{}, error) { return s.RegistrationStatus(ctx) }},
		{"ring alerts enabled", func() (interface{}, error) { return s.RingAlertEnabled(ctx) }},
		{"network time", func() (interface{}, error) { return s.NetworkSystemTime(ctx) }},
		{"status", func() (interface{}, error) { return s.StatusExtended(ctx) }},
		{"signal quality", func() (interface{}, error) {
			q, err := s.SignalQuality(ctx)
			if err != nil {
				return nil, err
			}
			return fmt.Sprintf("%d (%s)", q, sbd.SignalQualityDescriptions[q]), nil
		}},
	}
	for _, q := range queries {
		v, err := q.run()
		if err != nil {
			fmt.Printf("%s: %s\n", q.name, err)
			continue
		}
		fmt.Printf("%s: %v\n", q.name, v)
	}
}

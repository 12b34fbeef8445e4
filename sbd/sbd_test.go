// SPDX-License-Identifier: MIT
//
// Copyright © 2023 Sunstone Advisory Pty Ltd.

// Test suite for the sbd driver.
//
// The mockModem scripts exact request/response exchanges, so these tests
// double as a record of the wire protocol the driver speaks.

package sbd_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sunstone-advisory/iridium-sbd/at"
	"github.com/sunstone-advisory/iridium-sbd/sbd"
)

func TestInit(t *testing.T) {
	cmdSet := map[string][]string{
		"AT&K0\r\n":           {"\r\nOK\r\n"},
		"ATE0\r\n":            {"\r\nOK\r\n"},
		"AT+CIER=1,0,0,0\r\n": {"\r\nOK\r\n"},
		"AT+SBDD2\r\n":        {"\r\n0\r\n", "\r\nOK\r\n"},
		"AT+SBDAREG=1\r\n":    {"\r\nOK\r\n"},
		"AT+SBDMTA=1\r\n":     {"\r\nOK\r\n"},
		"AT+CRIS\r\n":         {"\r\n+CRIS:001,000\r\n", "\r\nOK\r\n"},
	}
	s, mm := setupSBD(t, cmdSet)
	defer teardownModem(mm)
	err := s.Init(context.Background())
	assert.Nil(t, err)
}

func TestInitFailFast(t *testing.T) {
	// echo off fails, so nothing after it may be attempted.
	cmdSet := map[string][]string{
		"AT&K0\r\n": {"\r\nOK\r\n"},
		"ATE0\r\n":  {"\r\nERROR\r\n"},
	}
	s, mm := setupSBD(t, cmdSet)
	defer teardownModem(mm)
	err := s.Init(context.Background())
	require.NotNil(t, err)
	assert.Contains(t, err.Error(), "disable echo")
	for _, w := range mm.writes {
		assert.NotEqual(t, "AT+SBDD2\r\n", w)
	}
}

func TestPing(t *testing.T) {
	s, mm := setupSBD(t, map[string][]string{"AT\r\n": {"\r\nOK\r\n"}})
	defer teardownModem(mm)
	assert.Nil(t, s.Ping(context.Background()))
}

func TestPingError(t *testing.T) {
	s, mm := setupSBD(t, map[string][]string{})
	defer teardownModem(mm)
	err := s.Ping(context.Background())
	assert.Equal(t, at.CommandError(""), err)
}

func TestIdentity(t *testing.T) {
	cmdSet := map[string][]string{
		"AT+CGMI\r\n": {"\r\nIridium\r\n", "\r\nOK\r\n"},
		"AT+CGMM\r\n": {"\r\nIRIDIUM 9600 Family SBD Transceiver\r\n", "\r\nOK\r\n"},
		"AT+CGSN\r\n": {"\r\n300234010753370\r\n", "\r\nOK\r\n"},
	}
	s, mm := setupSBD(t, cmdSet)
	defer teardownModem(mm)
	ctx := context.Background()
	v, err := s.Manufacturer(ctx)
	assert.Nil(t, err)
	assert.Equal(t, "Iridium", v)
	v, err = s.Model(ctx)
	assert.Nil(t, err)
	assert.Equal(t, "IRIDIUM 9600 Family SBD Transceiver", v)
	v, err = s.SerialNumber(ctx)
	assert.Nil(t, err)
	assert.Equal(t, "300234010753370", v)
}

func TestSignalQuality(t *testing.T) {
	patterns := []struct {
		name string
		rsp  string
		sq   int
		err  error
	}{
		{"five", "\r\n+CSQ:5\r\n", 5, nil},
		{"zero", "\r\n+CSQ:0\r\n", 0, nil},
		{"malformed", "\r\n+CSQ:x\r\n", 0, sbd.ErrMalformedResponse},
	}
	for _, p := range patterns {
		f := func(t *testing.T) {
			s, mm := setupSBD(t, map[string][]string{
				"AT+CSQ\r\n": {p.rsp, "\r\nOK\r\n"},
			})
			defer teardownModem(mm)
			sq, err := s.SignalQuality(context.Background())
			assert.Equal(t, p.err, err)
			assert.Equal(t, p.sq, sq)
		}
		t.Run(p.name, f)
	}
}

func TestSignalQualityFast(t *testing.T) {
	s, mm := setupSBD(t, map[string][]string{
		"AT+CSQF\r\n": {"\r\n+CSQF:3\r\n", "\r\nOK\r\n"},
	})
	defer teardownModem(mm)
	sq, err := s.SignalQualityFast(context.Background())
	assert.Nil(t, err)
	assert.Equal(t, 3, sq)
}

func TestNetworkSystemTime(t *testing.T) {
	s, mm := setupSBD(t, map[string][]string{
		"AT-MSSTM\r\n": {"\r\n-MSSTM: 6E5AD148\r\n", "\r\nOK\r\n"},
	})
	defer teardownModem(mm)
	v, err := s.NetworkSystemTime(context.Background())
	assert.Nil(t, err)
	expected := sbd.IridiumEpoch.Add(time.Duration(0x6E5AD148) * sbd.MSSTMTick)
	assert.Equal(t, expected, v)
}

func TestNetworkSystemTimeNoService(t *testing.T) {
	s, mm := setupSBD(t, map[string][]string{
		"AT-MSSTM\r\n": {"\r\n-MSSTM: no network service\r\n", "\r\nOK\r\n"},
	})
	defer teardownModem(mm)
	_, err := s.NetworkSystemTime(context.Background())
	assert.Equal(t, sbd.ErrNoNetworkService, err)
}

func TestRegistrationStatus(t *testing.T) {
	s, mm := setupSBD(t, map[string][]string{
		"AT+SBDREG?\r\n": {"\r\n+SBDREG:2\r\n", "\r\nOK\r\n"},
	})
	defer teardownModem(mm)
	v, err := s.RegistrationStatus(context.Background())
	assert.Nil(t, err)
	assert.Equal(t, sbd.RegistrationRegistered, v)
}

func TestRegister(t *testing.T) {
	patterns := []struct {
		name   string
		rsp    string
		status sbd.RegistrationStatus
		fails  bool
	}{
		{"registered", "\r\n+SBDREG:2,0\r\n", sbd.RegistrationRegistered, false},
		{"denied", "\r\n+SBDREG:3,15\r\n", sbd.RegistrationDenied, true},
	}
	for _, p := range patterns {
		f := func(t *testing.T) {
			s, mm := setupSBD(t, map[string][]string{
				"AT+SBDREG\r\n": {p.rsp, "\r\nOK\r\n"},
			})
			defer teardownModem(mm)
			v, err := s.Register(context.Background())
			assert.Equal(t, p.status, v)
			if p.fails {
				var serr *sbd.SessionError
				assert.True(t, errors.As(err, &serr))
			} else {
				assert.Nil(t, err)
			}
		}
		t.Run(p.name, f)
	}
}

func TestRingAlertEnabled(t *testing.T) {
	s, mm := setupSBD(t, map[string][]string{
		"AT+SBDMTA=1\r\n": {"\r\nOK\r\n"},
		"AT+SBDMTA?\r\n":  {"\r\n+SBDMTA:1\r\n", "\r\nOK\r\n"},
	})
	defer teardownModem(mm)
	ctx := context.Background()
	require.Nil(t, s.RingAlertEnable(ctx))
	enabled, err := s.RingAlertEnabled(ctx)
	assert.Nil(t, err)
	assert.True(t, enabled)
}

func TestRingIndicationStatus(t *testing.T) {
	rings := make(chan struct{}, 10)
	s, mm := setupSBD(t, map[string][]string{
		"AT+CRIS\r\n": {"\r\n+CRIS:001,001\r\n", "\r\nOK\r\n"},
	}, sbd.WithRingHandler(func() { rings <- struct{}{} }))
	defer teardownModem(mm)

	// without notification the handler stays quiet.
	v, err := s.RingIndicationStatus(context.Background())
	assert.Nil(t, err)
	assert.Equal(t, sbd.RingReceived, v)
	select {
	case <-rings:
		t.Error("ring emitted without notification requested")
	default:
	}

	v, err = s.RingIndicationStatus(context.Background(), sbd.WithRingNotification())
	assert.Nil(t, err)
	assert.Equal(t, sbd.RingReceived, v)
	select {
	case <-rings:
	case <-time.After(100 * time.Millisecond):
		t.Error("no ring emitted with notification requested")
	}
}

func TestStatus(t *testing.T) {
	s, mm := setupSBD(t, map[string][]string{
		"AT+SBDS\r\n": {"\r\n+SBDS: 1, 5, 0, -1\r\n", "\r\nOK\r\n"},
	})
	defer teardownModem(mm)
	v, err := s.Status(context.Background())
	assert.Nil(t, err)
	assert.Equal(t, sbd.Status{
		MOMessageInBuffer: true,
		MOMSN:             5,
		MTMessageInBuffer: false,
		MTMSN:             -1,
	}, v)
}

func TestStatusExtended(t *testing.T) {
	s, mm := setupSBD(t, map[string][]string{
		"AT+SBDSX\r\n": {"\r\n+SBDSX: 0, 10, 1, 7, 1, 2\r\n", "\r\nOK\r\n"},
	})
	defer teardownModem(mm)
	v, err := s.StatusExtended(context.Background())
	assert.Nil(t, err)
	assert.Equal(t, sbd.StatusExtended{
		Status: sbd.Status{
			MOMessageInBuffer: false,
			MOMSN:             10,
			MTMessageInBuffer: true,
			MTMSN:             7,
		},
		RingAlert: true,
		MTQueued:  2,
	}, v)
}

func TestGateway(t *testing.T) {
	s, mm := setupSBD(t, map[string][]string{
		"AT+SBDGW\r\n": {"\r\n+SBDGW: EMSS\r\n", "\r\nOK\r\n"},
	})
	defer teardownModem(mm)
	v, err := s.Gateway(context.Background())
	assert.Nil(t, err)
	assert.Equal(t, "EMSS", v)
}

func TestDetach(t *testing.T) {
	patterns := []struct {
		name  string
		rsp   string
		fails bool
	}{
		{"ok", "\r\n+SBDDET:0,0\r\n", false},
		{"failed", "\r\n+SBDDET:1,1\r\n", true},
	}
	for _, p := range patterns {
		f := func(t *testing.T) {
			s, mm := setupSBD(t, map[string][]string{
				"AT+SBDDET\r\n": {p.rsp, "\r\nOK\r\n"},
			})
			defer teardownModem(mm)
			err := s.Detach(context.Background())
			if p.fails {
				var serr *sbd.SessionError
				assert.True(t, errors.As(err, &serr))
			} else {
				assert.Nil(t, err)
			}
		}
		t.Run(p.name, f)
	}
}

func TestUnlock(t *testing.T) {
	patterns := []struct {
		name string
		rsp  string
		err  error
	}{
		{"unlocked", "\r\n+CULK:0\r\n", nil},
		{"wrong key", "\r\n+CULK:1\r\n", sbd.ErrWrongUnlockKey},
		{"permanent", "\r\n+CULK:2\r\n", sbd.ErrPermanentlyLocked},
	}
	for _, p := range patterns {
		f := func(t *testing.T) {
			s, mm := setupSBD(t, map[string][]string{
				"AT+CULK=12345678\r\n": {p.rsp, "\r\nOK\r\n"},
			})
			defer teardownModem(mm)
			err := s.Unlock(context.Background(), "12345678")
			assert.Equal(t, p.err, err)
		}
		t.Run(p.name, f)
	}
}

func TestLockStatus(t *testing.T) {
	s, mm := setupSBD(t, map[string][]string{
		"AT+CULK?\r\n": {"\r\n+CULK:2\r\n", "\r\nOK\r\n"},
	})
	defer teardownModem(mm)
	v, err := s.LockStatus(context.Background())
	assert.Nil(t, err)
	assert.Equal(t, sbd.PermanentlyLocked, v)
}

func TestWriteBinary(t *testing.T) {
	// payload ABC sums to 0xC6, emitted big-endian after the payload.
	patterns := []struct {
		name   string
		result string
		err    string
	}{
		{"ok", "\r\n0\r\n", ""},
		{"transfer timeout", "\r\n1\r\n", "timeout"},
		{"checksum rejected", "\r\n2\r\n", "checksum"},
		{"wrong size", "\r\n3\r\n", "size"},
	}
	for _, p := range patterns {
		f := func(t *testing.T) {
			s, mm := setupSBD(t, map[string][]string{
				"AT+SBDWB=3\r\n": {"\r\nREADY\r\n"},
				"ABC\x00\xc6":    {p.result},
			})
			defer teardownModem(mm)
			err := s.WriteBinary(context.Background(), []byte("ABC"))
			if p.err == "" {
				assert.Nil(t, err)
			} else {
				var werr sbd.BinaryWriteError
				require.True(t, errors.As(err, &werr))
				assert.Contains(t, err.Error(), p.err)
			}
		}
		t.Run(p.name, f)
	}
}

func TestWriteBinaryLimits(t *testing.T) {
	s, mm := setupSBD(t, nil)
	defer teardownModem(mm)
	err := s.WriteBinary(context.Background(), nil)
	assert.Equal(t, sbd.ErrMessageEmpty, err)
	err = s.WriteBinary(context.Background(), make([]byte, 341))
	assert.Equal(t, sbd.ErrMessageTooLong, err)
}

func TestReadBinary(t *testing.T) {
	s, mm := setupSBD(t, map[string][]string{
		"AT+SBDRB\r\n": {"\x00\x03ABC\x00\xc6\r\n", "OK\r\n"},
	})
	defer teardownModem(mm)
	v, err := s.ReadBinary(context.Background())
	assert.Nil(t, err)
	assert.Equal(t, []byte("ABC"), v)
}

func TestReadBinaryChecksumMismatch(t *testing.T) {
	s, mm := setupSBD(t, map[string][]string{
		"AT+SBDRB\r\n": {"\x00\x03ABC\x00\x00\r\n", "OK\r\n"},
	})
	defer teardownModem(mm)
	_, err := s.ReadBinary(context.Background())
	var cerr *sbd.ChecksumError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, uint16(0xC6), cerr.Computed)
	assert.Equal(t, uint16(0), cerr.Received)
}

func TestReadText(t *testing.T) {
	s, mm := setupSBD(t, map[string][]string{
		"AT+SBDRT\r\n": {"\r\n+SBDRT:\r\nWORLD\r\n", "OK\r\n"},
	})
	defer teardownModem(mm)
	v, err := s.ReadText(context.Background())
	assert.Nil(t, err)
	assert.Equal(t, "WORLD", v)
}

func TestWriteTextTooLong(t *testing.T) {
	s, mm := setupSBD(t, nil)
	defer teardownModem(mm)
	err := s.WriteText(context.Background(), strings.Repeat("x", 121))
	assert.Equal(t, sbd.ErrMessageTooLong, err)
}

func TestLoopback(t *testing.T) {
	// write a binary message, copy MO to MT, and read back the same bytes.
	s, mm := setupSBD(t, map[string][]string{
		"AT+SBDWB=3\r\n": {"\r\nREADY\r\n"},
		"ABC\x00\xc6":    {"\r\n0\r\n"},
		"AT+SBDTC\r\n":   {"\r\nSBDTC: Outbound SBD Copied to Inbound SBD: size = 3\r\n", "\r\nOK\r\n"},
		"AT+SBDRB\r\n":   {"\x00\x03ABC\x00\xc6\r\n", "OK\r\n"},
	})
	defer teardownModem(mm)
	ctx := context.Background()
	require.Nil(t, s.WriteBinary(ctx, []byte("ABC")))
	require.Nil(t, s.TransferMOToMT(ctx))
	v, err := s.ReadBinary(ctx)
	assert.Nil(t, err)
	assert.Equal(t, []byte("ABC"), v)
}

func TestWaitForNetworkTimeout(t *testing.T) {
	s, mm := setupSBD(t, map[string][]string{
		"AT+CIER=1,1,0,0\r\n": {"\r\nOK\r\n"},
	})
	defer teardownModem(mm)
	err := s.WaitForNetwork(context.Background(), 2, sbd.WithCommandTimeout(50*time.Millisecond))
	assert.Equal(t, at.ErrTimeout, err)
}

func TestSendTextMessage(t *testing.T) {
	// the full pipeline: write, wait for signal, session, MT read, buffer
	// hygiene.
	cmdSet := map[string][]string{
		"AT+SBDWT=HELLO\r\n":  {"\r\nOK\r\n"},
		"AT+CIER=1,1,0,0\r\n": {"\r\nOK\r\n", "\r\n+CIEV:0,3\r\n"},
		"AT+CIER=1,0,0,0\r\n": {"\r\nOK\r\n"},
		"AT+SBDIXA\r\n":       {"\r\n+SBDIX: 1, 42, 1, 7, 11, 0\r\n", "\r\nOK\r\n"},
		"AT+SBDRT\r\n":        {"\r\n+SBDRT:\r\nWORLD\r\n", "OK\r\n"},
		"AT+SBDD1\r\n":        {"\r\nOK\r\n"},
		"AT+SBDD0\r\n":        {"\r\nOK\r\n"},
	}
	inbound := make(chan []byte, 10)
	s, mm := setupSBD(t, cmdSet, sbd.WithInboundHandler(func(b []byte) { inbound <- b }))
	defer teardownModem(mm)
	result, err := s.SendTextMessage(context.Background(), "HELLO", sbd.WithSignalQuality(2))
	assert.Nil(t, err)
	assert.Equal(t, 1, result.MOStatus)
	assert.Equal(t, 42, result.MOMSN)
	assert.Equal(t, 1, result.MTStatus)
	assert.Equal(t, 11, result.MTLength)
	select {
	case b := <-inbound:
		assert.Equal(t, []byte("WORLD"), b)
	case <-time.After(100 * time.Millisecond):
		t.Error("no inbound message emitted")
	}
	select {
	case <-inbound:
		t.Error("inbound message emitted more than once")
	default:
	}
	// the MO buffer is cleared after the session.
	assert.Contains(t, mm.writes, "AT+SBDD0\r\n")
	assert.Contains(t, mm.writes, "AT+SBDD1\r\n")
}

func TestSendTextMessageMOFailure(t *testing.T) {
	cmdSet := map[string][]string{
		"AT+SBDWT=HELLO\r\n":  {"\r\nOK\r\n"},
		"AT+CIER=1,1,0,0\r\n": {"\r\nOK\r\n", "\r\n+CIEV:0,5\r\n"},
		"AT+CIER=1,0,0,0\r\n": {"\r\nOK\r\n"},
		"AT+SBDIXA\r\n":       {"\r\n+SBDIX: 13, 42, 0, -1, 0, 0\r\n", "\r\nOK\r\n"},
		"AT+SBDD0\r\n":        {"\r\nOK\r\n"},
	}
	s, mm := setupSBD(t, cmdSet)
	defer teardownModem(mm)
	result, err := s.SendTextMessage(context.Background(), "HELLO")
	var serr *sbd.SessionError
	require.True(t, errors.As(err, &serr))
	require.NotNil(t, serr.Result)
	assert.Equal(t, 13, serr.Result.MOStatus)
	// the structured result is returned alongside the error.
	assert.Equal(t, 13, result.MOStatus)
	// the MO buffer is cleared even on session failure.
	assert.Contains(t, mm.writes, "AT+SBDD0\r\n")
}

func TestSendTextMessageMailboxCheckError(t *testing.T) {
	cmdSet := map[string][]string{
		"AT+SBDWT=HELLO\r\n":  {"\r\nOK\r\n"},
		"AT+CIER=1,1,0,0\r\n": {"\r\nOK\r\n", "\r\n+CIEV:0,5\r\n"},
		"AT+CIER=1,0,0,0\r\n": {"\r\nOK\r\n"},
		"AT+SBDIXA\r\n":       {"\r\n+SBDIX: 0, 42, 2, -1, 0, 0\r\n", "\r\nOK\r\n"},
		"AT+SBDD0\r\n":        {"\r\nOK\r\n"},
	}

	// warn-only by default.
	s, mm := setupSBD(t, cmdSet)
	result, err := s.SendTextMessage(context.Background(), "HELLO")
	assert.Nil(t, err)
	assert.Equal(t, 2, result.MTStatus)
	teardownModem(mm)

	// opt-in hard failure.
	s, mm = setupSBD(t, cmdSet)
	defer teardownModem(mm)
	_, err = s.SendTextMessage(context.Background(), "HELLO", sbd.WithFailOnMailboxCheckError())
	var serr *sbd.SessionError
	assert.True(t, errors.As(err, &serr))
}

func TestSendTextMessageCompressed(t *testing.T) {
	cmdSet := map[string][]string{
		"AT+SBDWT=ZIP\r\n":    {"\r\nOK\r\n"},
		"AT+CIER=1,1,0,0\r\n": {"\r\nOK\r\n", "\r\n+CIEV:0,5\r\n"},
		"AT+CIER=1,0,0,0\r\n": {"\r\nOK\r\n"},
		"AT+SBDIXA\r\n":       {"\r\n+SBDIX: 0, 1, 0, -1, 0, 0\r\n", "\r\nOK\r\n"},
		"AT+SBDD0\r\n":        {"\r\nOK\r\n"},
	}
	s, mm := setupSBD(t, cmdSet, sbd.WithCodec(stubCodec{}))
	defer teardownModem(mm)
	_, err := s.SendTextMessage(context.Background(), "HELLO", sbd.WithCompression())
	assert.Nil(t, err)
	assert.Contains(t, mm.writes, "AT+SBDWT=ZIP\r\n")
}

func TestSendBinaryMessage(t *testing.T) {
	cmdSet := map[string][]string{
		"AT+SBDWB=3\r\n":      {"\r\nREADY\r\n"},
		"ABC\x00\xc6":         {"\r\n0\r\n"},
		"AT+CIER=1,1,0,0\r\n": {"\r\nOK\r\n", "\r\n+CIEV:0,4\r\n"},
		"AT+CIER=1,0,0,0\r\n": {"\r\nOK\r\n"},
		"AT+SBDIXA\r\n":       {"\r\n+SBDIX: 0, 8, 1, 3, 3, 0\r\n", "\r\nOK\r\n"},
		"AT+SBDRB\r\n":        {"\x00\x03MT1\x00\xd2\r\n", "OK\r\n"},
		"AT+SBDD1\r\n":        {"\r\nOK\r\n"},
		"AT+SBDD0\r\n":        {"\r\nOK\r\n"},
	}
	inbound := make(chan []byte, 10)
	s, mm := setupSBD(t, cmdSet, sbd.WithInboundHandler(func(b []byte) { inbound <- b }))
	defer teardownModem(mm)
	result, err := s.SendBinaryMessage(context.Background(), []byte("ABC"))
	assert.Nil(t, err)
	assert.Equal(t, 0, result.MOStatus)
	select {
	case b := <-inbound:
		assert.Equal(t, []byte("MT1"), b)
	case <-time.After(100 * time.Millisecond):
		t.Error("no inbound message emitted")
	}
}

func TestMailboxCheck(t *testing.T) {
	cmdSet := map[string][]string{
		"AT+SBDWT=\r\n":       {"\r\nOK\r\n"},
		"AT+CIER=1,1,0,0\r\n": {"\r\nOK\r\n", "\r\n+CIEV:0,2\r\n"},
		"AT+CIER=1,0,0,0\r\n": {"\r\nOK\r\n"},
		"AT+SBDIXA\r\n":       {"\r\n+SBDIX: 0, 3, 0, -1, 0, 0\r\n", "\r\nOK\r\n"},
		"AT+SBDD0\r\n":        {"\r\nOK\r\n"},
	}
	s, mm := setupSBD(t, cmdSet)
	defer teardownModem(mm)
	result, err := s.MailboxCheck(context.Background())
	assert.Nil(t, err)
	assert.Equal(t, 0, result.MTQueued)
	assert.Contains(t, mm.writes, "AT+SBDWT=\r\n")
}

func TestChecksum(t *testing.T) {
	patterns := []struct {
		name string
		msg  []byte
		sum  uint16
	}{
		{"abc", []byte("ABC"), 0xC6},
		{"empty", nil, 0},
		{"wraps", []byte{0xFF, 0xFF, 0xFF}, 0x02FD},
	}
	for _, p := range patterns {
		f := func(t *testing.T) {
			assert.Equal(t, p.sum, sbd.Checksum(p.msg))
		}
		t.Run(p.name, f)
	}
}

type stubCodec struct{}

func (stubCodec) Compress(s string) []byte {
	return []byte("ZIP")
}

func (stubCodec) Decompress(b []byte) (string, error) {
	return "HELLO", nil
}

type mockModem struct {
	cmdSet map[string][]string
	closed bool
	writes []string
	// The buffer emulating characters emitted by the modem.
	r chan []byte
}

func (m *mockModem) Read(p []byte) (n int, err error) {
	data, ok := <-m.r
	if data == nil {
		return 0, at.ErrClosed
	}
	copy(p, data) // assumes p is empty
	if !ok {
		return len(data), errors.New("closed with data")
	}
	return len(data), nil
}

func (m *mockModem) Write(p []byte) (n int, err error) {
	if m.closed {
		return 0, at.ErrClosed
	}
	m.writes = append(m.writes, string(p))
	v := m.cmdSet[string(p)]
	if len(v) == 0 {
		m.r <- []byte("\r\nERROR\r\n")
	} else {
		for _, l := range v {
			if len(l) == 0 {
				continue
			}
			m.r <- []byte(l)
		}
	}
	return len(p), nil
}

func (m *mockModem) Close() error {
	if m.closed == false {
		m.closed = true
		close(m.r)
	}
	return nil
}

func setupSBD(t *testing.T, cmdSet map[string][]string, options ...sbd.Option) (*sbd.SBD, *mockModem) {
	mm := &mockModem{cmdSet: cmdSet, r: make(chan []byte, 10)}
	s := sbd.New(mm, options...)
	require.NotNil(t, s)
	return s, mm
}

func teardownModem(m *mockModem) {
	m.Close()
}

package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"jhal-go/drivers/ad5370"
	"jhal-go/drivers/cc1200"
	"jhal-go/drivers/pca9554"
	"jhal-go/services/sampler"
	"jhal-go/x/conv"
	"jhal-go/x/mathx"
	"jhal-go/x/ramp"
)

const (
	defaultRounds = 5
	rxTimeout     = 2 * time.Second
)

func (s *shell) cmdTemp(ctx context.Context, args []string) error {
	if len(args) == 0 {
		if len(s.rig.temps) == 0 {
			return fmt.Errorf("no thermometer configured")
		}
		for _, n := range names(s.rig.temps) {
			s.readTemp(ctx, n, s.rig.temps[n])
		}
		return nil
	}
	t, ok := s.rig.temps[args[0]]
	if !ok {
		return fmt.Errorf("no thermometer %q", args[0])
	}
	s.readTemp(ctx, args[0], t)
	return nil
}

func (s *shell) readTemp(ctx context.Context, name string, t thermometer) {
	v, err := t.Read(ctx)
	if err != nil {
		fmt.Fprintf(s.out, "%s: %v\n", name, err)
		return
	}
	fmt.Fprintf(s.out, "%s: %s C\n", name, milli(int64(v.MilliCelsius())))
}

func (s *shell) cmdWatch(ctx context.Context, args []string) error {
	if len(s.rig.sampled) == 0 {
		return fmt.Errorf("nothing to sample")
	}
	rounds := defaultRounds
	period := s.rig.sampler.Period
	if period <= 0 {
		period = time.Second
	}
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 {
			return fmt.Errorf("bad round count %q", args[0])
		}
		rounds = n
	}
	if len(args) > 1 {
		d, err := time.ParseDuration(args[1])
		if err != nil || d <= 0 {
			return fmt.Errorf("bad period %q", args[1])
		}
		period = d
	}

	w := sampler.New(sampler.Config{
		RetryBackoff: s.rig.sampler.RetryBackoff,
		MaxRetries:   s.rig.sampler.MaxRetries,
		// A 12-bit DS18B20 conversion outlasts the default collect budget.
		CollectTimeout: time.Second,
	})
	ctx, cancel := context.WithCancel(ctx)
	// The next command must not race the sampler for the devices.
	defer func() {
		cancel()
		w.Wait()
	}()
	w.Start(ctx)
	w.Every(ctx, period, s.rig.sampled...)

	want := rounds * len(s.rig.sampled)
	deadline := time.After(time.Duration(rounds+1)*period + 2*time.Second)
	for got := 0; got < want; got++ {
		select {
		case r := <-w.Results():
			s.printResult(r)
		case <-deadline:
			return fmt.Errorf("timed out after %d of %d samples", got, want)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (s *shell) printResult(r sampler.Result) {
	if r.Err != nil {
		fmt.Fprintf(s.out, "%s: %v\n", r.ID, r.Err)
		return
	}
	var b strings.Builder
	for i, rd := range r.Sample {
		if i > 0 {
			b.WriteString(" ")
		}
		switch rd.Unit {
		case "mC", "mdeg":
			fmt.Fprintf(&b, "%s=%s", rd.Kind, milli(rd.Value))
		default:
			fmt.Fprintf(&b, "%s=0x%02x", rd.Kind, rd.Value)
		}
	}
	ts := time.UnixMilli(r.Sample[0].TsMs).Format("15:04:05.000")
	fmt.Fprintf(s.out, "%s %s: %s\n", ts, r.ID, b.String())
}

func (s *shell) cmdDAC(_ context.Context, args []string) error {
	d, args, err := pick("dac", s.rig.dacs, args)
	if err != nil {
		return err
	}
	if len(args) < 2 {
		return fmt.Errorf("usage: %s", s.cmds["dac"].usage)
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 0 || n >= ad5370.NumChannels {
		return fmt.Errorf("channel must be 0..%d", ad5370.NumChannels-1)
	}
	g, ch := ad5370.Split(n)

	if args[1] == "ramp" {
		if len(args) < 4 {
			return fmt.Errorf("usage: %s", s.cmds["dac"].usage)
		}
		to, err := parseCode(args[2])
		if err != nil {
			return err
		}
		ms, err := strconv.Atoi(args[3])
		if err != nil || ms < 0 {
			return fmt.Errorf("bad duration %q", args[3])
		}
		cur, err := d.ReadChannel(g, ch)
		if err != nil {
			return err
		}
		const stepMs = 10
		steps := mathx.Clamp(ms/stepMs, 1, 1000)
		err = ramp.Linear(cur, to, steps,
			func() bool { time.Sleep(stepMs * time.Millisecond); return true },
			func(c uint16) error { return d.SetChannel(g, ch, c) })
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "ch%d: 0x%04x -> 0x%04x in %d steps\n", n, cur, to, steps)
		return nil
	}

	code, err := parseCode(args[1])
	if err != nil {
		return err
	}
	if err := d.SetChannel(g, ch, code); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "ch%d (group %d, ch %d) = 0x%04x\n", n, g, ch, code)
	return nil
}

// parseCode accepts a 16-bit code ("0x8000", "32768") or a percentage of
// full scale ("50%").
func parseCode(s string) (uint16, error) {
	if p, ok := strings.CutSuffix(s, "%"); ok {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return 0, fmt.Errorf("bad percentage %q", s)
		}
		// Hundredths of a percent keep 0.01% resolution on the integer map.
		hp := uint16(mathx.Clamp(v*100+0.5, 0, 10000))
		return mathx.MapU16(hp, 0, 10000, 0, 0xFFFF), nil
	}
	v, err := strconv.ParseUint(s, 0, 16)
	if err != nil {
		return 0, fmt.Errorf("bad code %q", s)
	}
	return uint16(v), nil
}

func (s *shell) cmdTX(_ context.Context, args []string) error {
	r, args, err := pick("radio", s.rig.radios, args)
	if err != nil {
		return err
	}
	if len(args) != 1 {
		return fmt.Errorf("usage: %s", s.cmds["tx"].usage)
	}
	p, err := payload(args[0])
	if err != nil {
		return err
	}
	if err := r.TransmitFixPacket(p); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "sent %d bytes\n", len(p))
	return nil
}

func payload(s string) ([]byte, error) {
	if h, ok := strings.CutPrefix(s, "0x"); ok {
		p, err := hex.DecodeString(h)
		if err != nil {
			return nil, fmt.Errorf("bad hex payload: %v", err)
		}
		return p, nil
	}
	return []byte(s), nil
}

func (s *shell) cmdRX(ctx context.Context, args []string) error {
	r, args, err := pick("radio", s.rig.radios, args)
	if err != nil {
		return err
	}
	if len(args) < 1 {
		return fmt.Errorf("usage: %s", s.cmds["rx"].usage)
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 || n > cc1200.MaxPayload {
		return fmt.Errorf("length must be 1..%d", cc1200.MaxPayload)
	}
	timeout := rxTimeout
	if len(args) > 1 {
		if timeout, err = time.ParseDuration(args[1]); err != nil {
			return fmt.Errorf("bad timeout %q", args[1])
		}
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	p := make([]byte, n)
	if err := r.ReceiveFixPacket(ctx, p); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "got %d bytes: %s %q\n", n, hex.EncodeToString(p), p)
	return nil
}

func (s *shell) cmdStatus(_ context.Context, args []string) error {
	r, _, err := pick("radio", s.rig.radios, args)
	if err != nil {
		return err
	}
	st, err := r.ReadChipStatus()
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "status 0x%02x ready=%t state=%s\n", byte(st), st.Ready(), st.State())
	return nil
}

func (s *shell) cmdGPIO(_ context.Context, args []string) error {
	x, args, err := pick("expander", s.rig.expanders, args)
	if err != nil {
		return err
	}
	if len(args) < 1 {
		return fmt.Errorf("usage: %s", s.cmds["gpio"].usage)
	}
	pin, err := strconv.Atoi(args[0])
	if err != nil || pin < 0 || pin >= pca9554.NumPins {
		return fmt.Errorf("pin must be 0..%d", pca9554.NumPins-1)
	}
	op := ""
	if len(args) > 1 {
		op = args[1]
	}
	switch op {
	case "", "in":
		if op == "in" || x.Direction(pin) != pca9554.Input {
			if err := x.ConfigurePin(pin, pca9554.Input); err != nil {
				return err
			}
		}
		v, err := x.Input(pin)
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "pin %d = %d\n", pin, b2i(v))
	case "0", "1":
		if x.Direction(pin) != pca9554.Output {
			if err := x.ConfigurePin(pin, pca9554.Output); err != nil {
				return err
			}
		}
		if err := x.SetOutput(pin, op == "1"); err != nil {
			return err
		}
		fmt.Fprintf(s.out, "pin %d <- %s\n", pin, op)
	default:
		return fmt.Errorf("usage: %s", s.cmds["gpio"].usage)
	}
	return nil
}

func (s *shell) cmdLEDs(_ context.Context, args []string) error {
	l, args, err := pick("led chain", s.rig.leds, args)
	if err != nil {
		return err
	}
	if len(args) == 1 && args[0] == "reset" {
		return l.Reset()
	}
	if len(args) != 3 || (args[2] != "on" && args[2] != "off") {
		return fmt.Errorf("usage: %s", s.cmds["leds"].usage)
	}
	chip, err1 := strconv.Atoi(args[0])
	ch, err2 := strconv.Atoi(args[1])
	if err1 != nil || err2 != nil {
		return fmt.Errorf("chip and channel must be numbers")
	}
	return l.Set(chip, ch, args[2] == "on")
}

func (s *shell) cmdAngle(_ context.Context, args []string) error {
	e, _, err := pick("encoder", s.rig.encoders, args)
	if err != nil {
		return err
	}
	v, err := e.Read()
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "%s deg (code %d, status 0x%02x ok=%t)\n",
		milli(int64(v.MilliDegrees())), v.Code, uint8(v.Status), v.Status.OK())
	return nil
}

// milli formats a thousandths fixed-point value.
func milli(v int64) string { return string(conv.AppendMilli(nil, v)) }

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}

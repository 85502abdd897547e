//go:build rp2040

// Command pico-probe samples a DS18B20 on an RP2040 and reports readings on
// the UART console. Console commands: read, rom, res <9..12>, period <ms>.
package main

import (
	"context"
	"sync"
	"time"

	"jhal-go/drivers/ds18b20"
	"jhal-go/drivers/onewire"
	"jhal-go/jhal"
	"jhal-go/jhal/rp2"
	"jhal-go/services/sampler"
	"jhal-go/x/conv"
	"jhal-go/x/timex"
)

const (
	consoleBaud = 115200
	consoleTX   = 0
	consoleRX   = 1
	probeGPIO   = 15
)

func main() {
	println("[probe] boot …")
	time.Sleep(1500 * time.Millisecond)

	con, err := rp2.NewConsole(0, consoleBaud, consoleTX, consoleRX)
	if err != nil {
		println("[probe] console:", err.Error())
		return
	}

	pin, _ := rp2.GPIO(probeGPIO)
	bus, err := onewire.New(onewire.Config{TX: pin, Delay: jhal.SpinDelay{}})
	if err != nil {
		println("[probe] onewire:", err.Error())
		return
	}
	dev, err := ds18b20.New(bus, ds18b20.Config{})
	if err != nil {
		println("[probe] ds18b20:", err.Error())
		return
	}

	p := &probe{con: con, bus: bus, dev: dev, period: 2 * time.Second}
	p.ad = &locked{Adaptor: &sampler.Thermometer{Name: "t0", Device: dev}, mu: &p.mu}
	p.run(context.Background())
}

// locked serialises sampler access to the device with console commands.
type locked struct {
	sampler.Adaptor
	mu *sync.Mutex
}

func (l *locked) Trigger(ctx context.Context) (time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.Adaptor.Trigger(ctx)
}

func (l *locked) Collect(ctx context.Context) (sampler.Sample, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.Adaptor.Collect(ctx)
}

type probe struct {
	con    *rp2.Console
	bus    *onewire.Bus
	dev    *ds18b20.Device
	ad     sampler.Adaptor
	mu     sync.Mutex
	period time.Duration
	out    []byte
}

func (p *probe) run(ctx context.Context) {
	w := sampler.New(sampler.Config{CollectTimeout: time.Second, MaxRetries: 20, RetryBackoff: 50 * time.Millisecond})
	w.Start(ctx)

	lines := make(chan string, 2)
	go func() {
		for {
			l, err := p.con.ReadLine(ctx)
			if err != nil {
				return
			}
			lines <- string(l)
		}
	}()

	tick := time.NewTicker(p.period)
	defer tick.Stop()
	p.say("pico-probe ready")
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			if !w.Submit(sampler.Request{ID: p.ad.ID(), Adaptor: p.ad}) {
				println("[probe] sampler queue full")
			}
		case r := <-w.Results():
			p.report(r)
		case l := <-lines:
			if d := p.command(ctx, l); d > 0 {
				tick.Reset(d)
			}
		}
	}
}

func (p *probe) report(r sampler.Result) {
	p.out = append(p.out[:0], r.ID...)
	if r.Err != nil {
		p.out = append(p.out, " error: "...)
		p.out = append(p.out, r.Err.Error()...)
	} else {
		for _, rd := range r.Sample {
			p.out = append(p.out, ' ')
			p.out = conv.AppendMilli(p.out, rd.Value)
			p.out = append(p.out, " C age "...)
			p.out = conv.AppendInt(p.out, timex.Since(rd.TsMs))
			p.out = append(p.out, "ms"...)
		}
	}
	p.flush()
}

// command runs one console line and returns a new sampling period when the
// line changed it.
func (p *probe) command(ctx context.Context, line string) time.Duration {
	cmd, arg := line, ""
	for i := 0; i < len(line); i++ {
		if line[i] == ' ' {
			cmd, arg = line[:i], line[i+1:]
			break
		}
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	switch cmd {
	case "read":
		t, err := p.dev.Read(ctx)
		if err != nil {
			p.say(err.Error())
			return 0
		}
		p.out = conv.AppendMilli(append(p.out[:0], "t0 "...), int64(t.MilliCelsius()))
		p.out = append(p.out, " C"...)
		p.flush()
	case "rom":
		a, err := p.bus.ReadROM()
		if err != nil {
			p.say(err.Error())
			return 0
		}
		p.out = conv.AppendHex(append(p.out[:0], "rom "...), uint64(a), 16)
		p.flush()
	case "res":
		n := atoi(arg)
		sp, err := p.dev.Scratchpad()
		if err == nil {
			err = p.dev.WriteScratchpad(int8(sp[2]), int8(sp[3]), ds18b20.Resolution(n))
		}
		if err != nil {
			p.say(err.Error())
			return 0
		}
		p.say("ok")
	case "period":
		ms := atoi(arg)
		if ms < 100 {
			p.say("period must be >= 100 ms")
			return 0
		}
		p.period = time.Duration(ms) * time.Millisecond
		p.say("ok")
		return p.period
	default:
		p.say("commands: read, rom, res <9..12>, period <ms>")
	}
	return 0
}

func (p *probe) say(s string) {
	p.out = append(p.out[:0], s...)
	p.flush()
}

func (p *probe) flush() {
	p.out = append(p.out, '\r', '\n')
	p.con.Write(p.out)
}

func atoi(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return -1
		}
		n = n*10 + int(s[i]-'0')
	}
	return n
}

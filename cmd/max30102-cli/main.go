// max30102-cli is an interactive shell for poking a running max30102d
// over MQTT: read samples and temperature, change configuration, and dump
// registers for diagnostics.
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/abiosoft/ishell"
	"github.com/golang/glog"

	"github.com/biosignal/max30102"
	"github.com/biosignal/max30102/command"
	"github.com/biosignal/max30102/mqtt"
)

var (
	mqttURL    = "mqtt://localhost:1883/max30102/"
	rspTimeout = 5 * time.Second
)

func init() {
	if val := os.Getenv("MAX30102_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
	flag.DurationVar(&rspTimeout, "timeout", rspTimeout, "Response wait timeout.")
}

// client issues sequence-numbered requests and matches responses.
type client struct {
	q *mqtt.Queue

	mu      sync.Mutex
	seq     byte
	pending map[byte]chan *command.Response
}

func newClient(q *mqtt.Queue) (*client, error) {
	c := &client{q: q, pending: map[byte]chan *command.Response{}}
	err := q.Sub("rsp", func(_ string, payload []byte) {
		resp, err := command.ParseResponse(payload)
		if err != nil {
			glog.Warningf("dropping malformed response: %v", err)
			return
		}
		c.mu.Lock()
		ch := c.pending[resp.Seq]
		delete(c.pending, resp.Seq)
		c.mu.Unlock()
		if ch != nil {
			ch <- resp
		}
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (c *client) do(code command.Code, data ...byte) (*command.Response, error) {
	ch := make(chan *command.Response, 1)
	c.mu.Lock()
	c.seq++
	seq := c.seq
	c.pending[seq] = ch
	c.mu.Unlock()

	req := &command.Request{Seq: seq, Code: code, Data: data}
	if err := c.q.Pub("cmd", req.Bytes()); err != nil {
		return nil, err
	}
	select {
	case resp := <-ch:
		if resp.Status != command.StatusOK {
			return nil, fmt.Errorf("device: %v", resp.Status)
		}
		return resp, nil
	case <-time.After(rspTimeout):
		c.mu.Lock()
		delete(c.pending, seq)
		c.mu.Unlock()
		return nil, fmt.Errorf("no response within %v", rspTimeout)
	}
}

func parseByte(arg string) (byte, error) {
	v, err := strconv.ParseUint(arg, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("not a byte value: %q", arg)
	}
	return byte(v), nil
}

func main() {
	flag.Parse()
	defer glog.Flush()

	q, err := mqtt.NewQueueFromURL(mqttURL)
	if err != nil {
		glog.Exitf("bad MQTT URL: %v", err)
	}
	if err := q.Connect(); err != nil {
		glog.Exitf("could not connect to broker: %v", err)
	}
	defer q.Close()

	cl, err := newClient(q)
	if err != nil {
		glog.Exitf("could not subscribe: %v", err)
	}

	shell := ishell.New()
	shell.Println("max30102 console, type 'help' for commands")

	shell.AddCmd(&ishell.Cmd{
		Name: "fifo",
		Help: "read the pending sample set, 'fifo wait' to block for the next one",
		Func: func(c *ishell.Context) {
			var flags byte
			if len(c.Args) > 0 && c.Args[0] == "wait" {
				flags |= command.FlagWait
			}
			resp, err := cl.do(command.CodeReadFIFO, flags)
			if err != nil {
				c.Err(err)
				return
			}
			s, err := command.DecodeFIFO(resp.Data)
			if err != nil {
				c.Err(err)
				return
			}
			c.Printf("%d samples (overflow %d)\n", s.Len, s.Overflow)
			for i := 0; i < int(s.Len); i++ {
				c.Printf("  %2d: red=%6d ir=%6d\n", i, s.Red[i], s.IR[i])
			}
		},
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "temp",
		Help: "read the die temperature",
		Func: func(c *ishell.Context) {
			resp, err := cl.do(command.CodeReadTemp)
			if err != nil {
				c.Err(err)
				return
			}
			t, err := command.DecodeTemp(resp.Data)
			if err != nil {
				c.Err(err)
				return
			}
			c.Printf("%.4f C\n", t)
		},
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "mode",
		Help: "set operating mode: hr, spo2 or multi",
		Func: func(c *ishell.Context) {
			modes := map[string]byte{
				"hr":    max30102.ModeHR,
				"spo2":  max30102.ModeSpO2,
				"multi": max30102.ModeMultiLed,
			}
			if len(c.Args) != 1 {
				c.Err(fmt.Errorf("usage: mode hr|spo2|multi"))
				return
			}
			mode, ok := modes[c.Args[0]]
			if !ok {
				c.Err(fmt.Errorf("unknown mode %q", c.Args[0]))
				return
			}
			if _, err := cl.do(command.CodeSetMode, mode); err != nil {
				c.Err(err)
			}
		},
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "slot",
		Help: "assign an LED to a time slot: slot <1-4> <0-3>",
		Func: func(c *ishell.Context) {
			if len(c.Args) != 2 {
				c.Err(fmt.Errorf("usage: slot <1-4> <led 0-3>"))
				return
			}
			slot, err := parseByte(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			led, err := parseByte(c.Args[1])
			if err != nil {
				c.Err(err)
				return
			}
			if _, err := cl.do(command.CodeSetSlot, slot, led); err != nil {
				c.Err(err)
			}
		},
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "fifocfg",
		Help: "write the FIFO configuration byte",
		Func: setByteCmd(cl, command.CodeSetFIFOConfig, "fifocfg"),
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "spo2cfg",
		Help: "write the SpO2 configuration byte",
		Func: setByteCmd(cl, command.CodeSetSpO2Config, "spo2cfg"),
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "poll",
		Help: "report whether a sample set is ready",
		Func: func(c *ishell.Context) {
			resp, err := cl.do(command.CodePoll)
			if err != nil {
				c.Err(err)
				return
			}
			if len(resp.Data) == 1 && resp.Data[0] == 1 {
				c.Println("ready")
			} else {
				c.Println("no data")
			}
		},
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "regs",
		Help: "dump the diagnostic registers",
		Func: func(c *ishell.Context) {
			resp, err := cl.do(command.CodeDumpRegs)
			if err != nil {
				c.Err(err)
				return
			}
			regs, err := command.DecodeRegs(resp.Data)
			if err != nil {
				c.Err(err)
				return
			}
			for _, r := range regs {
				c.Printf("  %#02x = %#02x\n", r.Addr, r.Value)
			}
		},
	})

	shell.Run()
}

func setByteCmd(cl *client, code command.Code, name string) func(*ishell.Context) {
	return func(c *ishell.Context) {
		if len(c.Args) != 1 {
			c.Err(fmt.Errorf("usage: %s <byte>", name))
			return
		}
		v, err := parseByte(c.Args[0])
		if err != nil {
			c.Err(err)
			return
		}
		if _, err := cl.do(code, v); err != nil {
			c.Err(err)
		}
	}
}

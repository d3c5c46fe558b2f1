// max30102d owns one MAX30102 sensor: it runs the interrupt-driven
// acquisition loop, serves command frames over MQTT, and publishes every
// drained sample set plus periodic die-temperature readings as telemetry.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang/glog"
	"periph.io/x/periph/conn/gpio/gpioreg"

	"github.com/biosignal/max30102"
	"github.com/biosignal/max30102/command"
	"github.com/biosignal/max30102/mqtt"
)

var (
	busName   = ""
	devAddr   = uint(max30102.Addr)
	mqttURL   = "mqtt://localhost:1883/max30102/"
	intPin    = ""
	resetPin  = ""
	tempEvery = 30 * time.Second
)

func init() {
	if val := os.Getenv("MAX30102_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&busName, "bus", busName, "I2C bus name, empty for the first available.")
	flag.UintVar(&devAddr, "addr", devAddr, "I2C device address.")
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
	flag.StringVar(&intPin, "int-pin", intPin, "GPIO pin wired to the sensor interrupt output.")
	flag.StringVar(&resetPin, "reset-pin", resetPin, "GPIO pin wired to the sensor reset line, optional.")
	flag.DurationVar(&tempEvery, "temp-every", tempEvery, "Die temperature publish interval, 0 to disable.")
}

func main() {
	flag.Parse()
	defer glog.Flush()

	var opts []max30102.Option
	if resetPin != "" {
		pin := gpioreg.ByName(resetPin)
		if pin == nil {
			glog.Exitf("unknown reset pin %q", resetPin)
		}
		opts = append(opts, max30102.WithResetPin(pin))
	}
	if intPin != "" {
		pin := gpioreg.ByName(intPin)
		if pin == nil {
			glog.Exitf("unknown interrupt pin %q", intPin)
		}
		opts = append(opts, max30102.WithInterruptPin(pin))
	}

	dev, err := max30102.New(busName, uint16(devAddr), opts...)
	if err != nil {
		glog.Exitf("could not attach device: %v", err)
	}
	defer dev.Close()
	if rev, err := dev.RevID(); err == nil {
		glog.Infof("attached MAX30102 rev %#02x at %#02x", rev, devAddr)
	}

	q, err := mqtt.NewQueueFromURL(mqttURL)
	if err != nil {
		glog.Exitf("bad MQTT URL: %v", err)
	}
	if err := q.Connect(); err != nil {
		glog.Exitf("could not connect to broker: %v", err)
	}
	defer q.Close()

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		glog.Info("stop requested")
		cancel()
	}()

	dp := &command.Dispatcher{Dev: dev}
	err = q.Sub("cmd", func(_ string, payload []byte) {
		req, err := command.ParseRequest(payload)
		if err != nil {
			glog.Warningf("dropping malformed request: %v", err)
			return
		}
		// Each request runs in its own goroutine: a blocking read must
		// not stall the broker callback and with it every later
		// command. Clients match replies by sequence number, so
		// response order is free to vary.
		go func() {
			resp := dp.Dispatch(ctx, req)
			if resp.Status != command.StatusOK {
				glog.V(1).Infof("cmd %d seq %d: %v", req.Code, req.Seq, resp.Status)
			}
			if err := q.Pub("rsp", resp.Bytes()); err != nil {
				glog.Errorf("could not publish response: %v", err)
			}
		}()
	})
	if err != nil {
		glog.Exitf("could not subscribe: %v", err)
	}

	// Stream every drained sample set. Observing leaves each set in the
	// mailbox, so ReadFIFO requests over the command surface still get
	// their data.
	go func() {
		var seq uint64
		for {
			s, n, err := dev.ObserveFIFO(ctx, seq)
			if err != nil {
				return // only fails on cancellation
			}
			seq = n
			if err := q.Pub("data/fifo", command.EncodeFIFO(s)); err != nil {
				glog.Errorf("could not publish samples: %v", err)
			}
		}
	}()

	if tempEvery > 0 {
		go func() {
			ticker := time.NewTicker(tempEvery)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					t, err := dev.Temperature()
					if err != nil {
						glog.Warningf("temperature read failed: %v", err)
						continue
					}
					if err := q.Pub("data/temp", command.EncodeTemp(t)); err != nil {
						glog.Errorf("could not publish temperature: %v", err)
					}
				}
			}
		}()
	}

	if intPin != "" {
		if err := dev.Run(ctx); err != nil && ctx.Err() == nil {
			glog.Exitf("interrupt loop failed: %v", err)
		}
	} else {
		glog.Warning("no interrupt pin, serving commands only")
		<-ctx.Done()
	}
}

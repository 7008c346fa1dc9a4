// Command mouse-debounce grabs a pointing device, filters button chatter and
// micro-dropouts, and re-emits the cleaned stream through a virtual pointer.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/mouse-debounce/internal/config"
	"github.com/sweeney/mouse-debounce/internal/evdev"
	"github.com/sweeney/mouse-debounce/internal/filter"
	"github.com/sweeney/mouse-debounce/internal/gpio"
	"github.com/sweeney/mouse-debounce/internal/input"
	"github.com/sweeney/mouse-debounce/internal/mqtt"
	"github.com/sweeney/mouse-debounce/internal/status"
	"github.com/sweeney/mouse-debounce/internal/timer"
	"github.com/sweeney/mouse-debounce/internal/web"
)

// statusInterval is how often the run loop refreshes the status tracker.
const statusInterval = time.Second

func main() {
	cfg, printConfig, err := loadConfig(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("fatal: invalid config: %v", err)
	}

	if printConfig {
		out, err := yaml.Marshal(cfg)
		if err != nil {
			log.Fatalf("fatal: %v", err)
		}
		os.Stdout.Write(out)
		return
	}

	if err := run(cfg); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

// loadConfig layers the YAML file named by --config over the defaults, then
// applies every flag that was set explicitly on the command line.
func loadConfig(args []string) (config.Config, bool, error) {
	def := config.Default()
	fs := flag.NewFlagSet("mouse-debounce", flag.ContinueOnError)

	configPath := fs.String("config", "", "YAML config file")
	chatter := fs.Duration("chatter", def.Chatter, "Minimum press duration before a release is believed")
	recontact := fs.Duration("recontact", def.Recontact, "How long a release is held back waiting for re-contact")
	buttons := fs.String("buttons", strings.Join(def.Buttons, ","), "Comma-separated buttons to debounce ("+strings.Join(input.ButtonNames(), ", ")+")")
	source := fs.String("source", def.Source, `Input source ("evdev" or "gpio")`)
	device := fs.String("device", def.Device, "evdev device node (empty to auto-detect)")
	gpioChip := fs.String("gpio-chip", def.GPIO.Chip, "GPIO chip for the gpio source")
	gpioPins := fs.String("gpio-pins", formatPins(def.GPIO.Pins), "Comma-separated pin=button pairs for the gpio source")
	sinkName := fs.String("sink-name", def.SinkName, "Name of the virtual output pointer")
	broker := fs.String("broker", def.MQTT.Broker, "MQTT broker address (empty to disable)")
	clientID := fs.String("client-id", def.MQTT.ClientID, "MQTT client ID")
	heartbeat := fs.Duration("heartbeat", def.Heartbeat, "Heartbeat interval (0 to disable)")
	httpAddr := fs.String("http", def.HTTP, "HTTP status address (empty to disable)")
	verbose := fs.Bool("verbose", def.Verbose, "Log every debounce decision")
	printConfig := fs.Bool("print-config", false, "Print the effective config as YAML and exit")

	if err := fs.Parse(args); err != nil {
		return def, false, err
	}

	cfg := def
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			return cfg, false, err
		}
	}

	var flagErr error
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "chatter":
			cfg.Chatter = *chatter
		case "recontact":
			cfg.Recontact = *recontact
		case "buttons":
			cfg.Buttons = splitList(*buttons)
		case "source":
			cfg.Source = *source
		case "device":
			cfg.Device = *device
		case "gpio-chip":
			cfg.GPIO.Chip = *gpioChip
		case "gpio-pins":
			pins, err := parsePins(*gpioPins)
			if err != nil {
				flagErr = fmt.Errorf("--gpio-pins: %w", err)
				return
			}
			cfg.GPIO.Pins = pins
		case "sink-name":
			cfg.SinkName = *sinkName
		case "broker":
			cfg.MQTT.Broker = *broker
		case "client-id":
			cfg.MQTT.ClientID = *clientID
		case "heartbeat":
			cfg.Heartbeat = *heartbeat
		case "http":
			cfg.HTTP = *httpAddr
		case "verbose":
			cfg.Verbose = *verbose
		}
	})
	return cfg, *printConfig, flagErr
}

func run(cfg config.Config) error {
	codes, err := cfg.DebouncedCodes()
	if err != nil {
		return err
	}

	source, device, err := openSource(cfg)
	if err != nil {
		return err
	}

	sink, err := evdev.NewUinputSink(cfg.SinkName)
	if err != nil {
		source.Close()
		return fmt.Errorf("create virtual pointer: %w", err)
	}

	gate := filter.NewGate()
	f, err := filter.New(filter.Config{
		Thresholds: cfg.Thresholds(),
		Buttons:    codes,
		Verbose:    cfg.Verbose,
	}, gate, timer.NewReal(), sink)
	if err != nil {
		source.Close()
		sink.Close()
		return fmt.Errorf("init filter: %w", err)
	}
	coord := filter.NewCoordinator(gate, f, source, sink)

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		ChatterMs:   cfg.Chatter.Milliseconds(),
		RecontactMs: cfg.Recontact.Milliseconds(),
		HeartbeatMs: cfg.Heartbeat.Milliseconds(),
		Source:      cfg.Source,
		Device:      device,
		Broker:      cfg.MQTT.Broker,
		HTTPAddr:    cfg.HTTP,
	})
	tracker.Update(gate.Phase(), f.Status())

	d := &daemon{
		filter:  f,
		coord:   coord,
		tracker: tracker,
	}

	// MQTT is telemetry only; the filter runs without it.
	if cfg.MQTT.Broker != "" {
		pub, err := mqtt.NewRealPublisher(cfg.MQTT.Broker, cfg.MQTT.ClientID)
		if err != nil {
			log.Printf("mqtt disabled: %v", err)
		} else {
			d.publisher = pub
			d.mqttStatus = pub
		}
	}
	d.publishStartup()

	if cfg.HTTP != "" {
		srv := web.New(cfg.HTTP, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			srv.Shutdown(ctx)
		}()
		log.Printf("http status server listening on %s", cfg.HTTP)
	}

	log.Printf("started: chatter=%v recontact=%v source=%s device=%s buttons=%s",
		cfg.Chatter, cfg.Recontact, cfg.Source, device, buttonList(codes))

	readerDone := make(chan error, 1)
	go func() {
		readerDone <- f.Run(source)
	}()

	statusTicker := time.NewTicker(statusInterval)
	defer statusTicker.Stop()

	var heartbeat <-chan time.Time
	if cfg.Heartbeat > 0 {
		hb := time.NewTicker(cfg.Heartbeat)
		defer hb.Stop()
		heartbeat = hb.C
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	return d.runLoop(statusTicker.C, heartbeat, sigCh, readerDone)
}

// openSource attaches to the configured input. Failures are fatal.
func openSource(cfg config.Config) (input.Source, string, error) {
	if cfg.Source == config.SourceGPIO {
		pins, err := cfg.PinCodes()
		if err != nil {
			return nil, "", err
		}
		src, err := gpio.NewRealSource(cfg.GPIO.Chip, pins)
		if err != nil {
			return nil, "", fmt.Errorf("attach gpio: %w", err)
		}
		return src, cfg.GPIO.Chip, nil
	}

	path := cfg.Device
	if path == "" {
		var err error
		if path, err = evdev.FindPointer(cfg.SinkName); err != nil {
			return nil, "", fmt.Errorf("find pointer: %w", err)
		}
	}
	src, err := evdev.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("attach %s: %w", path, err)
	}
	log.Printf("grabbed %s (%s)", path, src.Name())
	return src, path, nil
}

// daemon holds what the run loop needs after startup.
type daemon struct {
	filter     *filter.Filter
	coord      *filter.Coordinator
	publisher  mqtt.Publisher        // nil when MQTT is disabled
	mqttStatus mqtt.ConnectionStatus // nil when MQTT is disabled
	tracker    *status.Tracker
}

func (d *daemon) runLoop(tick, heartbeat <-chan time.Time, sig <-chan os.Signal, readerDone <-chan error) error {
	for {
		select {
		case s := <-sig:
			name := signalName(s)
			log.Printf("received %v, shutting down", s)
			if s != syscall.SIGINT {
				// The process may be killed at any moment; leave the broker's
				// last will to announce the disconnect.
				d.coord.Forced(name)
				d.refresh()
				return nil
			}
			err := d.coord.Cooperative(name)
			d.shutdown(name)
			if err != nil {
				return fmt.Errorf("shutdown: %w", err)
			}
			return nil

		case err := <-readerDone:
			// The device went away underneath us.
			log.Printf("source read error: %v", err)
			if cerr := d.coord.Cooperative("SOURCE_LOST"); cerr != nil {
				log.Printf("shutdown: %v", cerr)
			}
			d.shutdown("SOURCE_LOST")
			return fmt.Errorf("read source: %w", err)

		case <-tick:
			d.refresh()

		case <-heartbeat:
			snap := d.refresh()
			totals := snap.Totals()
			log.Printf("heartbeat: uptime=%v presses=%d releases=%d chatter=%d dropouts=%d fail_open=%d",
				snap.Uptime().Truncate(time.Second), totals.Presses, totals.Releases, totals.Chatter, totals.Dropouts, totals.FailOpen)
			d.publish(mqtt.SystemEvent{
				Timestamp:  snap.Now,
				Event:      mqtt.EventHeartbeat,
				RawPayload: status.FormatStatusEvent(snap, mqtt.EventHeartbeat, ""),
			})
		}
	}
}

// refresh copies filter state into the tracker and returns a snapshot.
func (d *daemon) refresh() status.Snapshot {
	d.tracker.Update(d.coord.Phase(), d.filter.Status())
	if d.mqttStatus != nil {
		d.tracker.SetMQTTConnected(d.mqttStatus.IsConnected())
	}
	return d.tracker.Snapshot()
}

func (d *daemon) publishStartup() {
	snap := d.refresh()
	d.publish(mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      mqtt.EventStartup,
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, mqtt.EventStartup, ""),
	})
}

// shutdown logs the final status line and publishes SHUTDOWN after a
// cooperative stop.
func (d *daemon) shutdown(reason string) {
	snap := d.refresh()
	totals := snap.Totals()
	log.Printf("stopped: reason=%s uptime=%v presses=%d releases=%d",
		reason, snap.Uptime().Truncate(time.Second), totals.Presses, totals.Releases)

	d.publish(mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      mqtt.EventShutdown,
		Reason:     reason,
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, mqtt.EventShutdown, reason),
	})
	if d.publisher != nil {
		d.publisher.Close()
	}
}

func (d *daemon) publish(event mqtt.SystemEvent) {
	if d.publisher == nil {
		return
	}
	if err := d.publisher.PublishSystem(event); err != nil {
		log.Printf("failed to publish %s event: %v", strings.ToLower(event.Event), err)
	}
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	case syscall.SIGHUP:
		return "SIGHUP"
	}
	return "UNKNOWN"
}

func buttonList(codes []uint16) string {
	names := make([]string, len(codes))
	for i, c := range codes {
		names[i] = input.ButtonName(c)
	}
	return strings.Join(names, ",")
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parsePins parses "17=left,27=right" into a pin map.
func parsePins(s string) (map[int]string, error) {
	pins := make(map[int]string)
	for _, pair := range splitList(s) {
		pinStr, button, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("%q is not pin=button", pair)
		}
		pin, err := strconv.Atoi(strings.TrimSpace(pinStr))
		if err != nil {
			return nil, fmt.Errorf("pin %q: %w", pinStr, err)
		}
		pins[pin] = strings.TrimSpace(button)
	}
	return pins, nil
}

func formatPins(pins map[int]string) string {
	var parts []string
	for pin, button := range pins {
		parts = append(parts, strconv.Itoa(pin)+"="+button)
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}

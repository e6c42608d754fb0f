package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/example/resource-booking/internal/scheduler"
)

// Config captures environment driven configuration values for the booking service.
type Config struct {
	HTTPPort  int
	SQLiteDSN string
	// BusinessTimezone is the IANA zone the daily cap and period presets are
	// evaluated in.
	BusinessTimezone string
	DailyCap         int
	KindCaps         map[scheduler.ResourceKind]int
	DispatchInterval time.Duration
	DispatchBatch    int
	// AMQPURL enables the RabbitMQ notification sender when set. Empty means
	// deliveries are logged instead of published.
	AMQPURL   string
	AMQPQueue string
}

// Load parses configuration values from the current process environment.
// A .env file in the working directory is merged in first when present.
//
// The loader applies sensible defaults for optional fields while validating
// values and reporting localized error messages for invalid entries.
func Load() (Config, error) {
	// Missing .env is the normal production case.
	_ = godotenv.Load()

	cfg := Config{
		HTTPPort:         8080,
		SQLiteDSN:        "file:booking.db",
		BusinessTimezone: "Asia/Tokyo",
		DailyCap:         scheduler.DefaultDailyCap,
		DispatchInterval: 30 * time.Second,
		DispatchBatch:    100,
		AMQPQueue:        "booking.notifications",
	}

	invalid := make([]string, 0, 2)

	if portValue := strings.TrimSpace(os.Getenv("BOOKING_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 {
			invalid = append(invalid, "BOOKING_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := strings.TrimSpace(os.Getenv("BOOKING_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if zone := strings.TrimSpace(os.Getenv("BOOKING_BUSINESS_TZ")); zone != "" {
		if _, err := time.LoadLocation(zone); err != nil {
			invalid = append(invalid, "BOOKING_BUSINESS_TZ")
		} else {
			cfg.BusinessTimezone = zone
		}
	}

	if capValue := strings.TrimSpace(os.Getenv("BOOKING_DAILY_CAP")); capValue != "" {
		cap, err := strconv.Atoi(capValue)
		if err != nil || cap <= 0 {
			invalid = append(invalid, "BOOKING_DAILY_CAP")
		} else {
			cfg.DailyCap = cap
		}
	}

	kindCaps, kindErrs := loadKindCaps()
	cfg.KindCaps = kindCaps
	invalid = append(invalid, kindErrs...)

	if intervalValue := strings.TrimSpace(os.Getenv("BOOKING_DISPATCH_INTERVAL")); intervalValue != "" {
		interval, err := time.ParseDuration(intervalValue)
		if err != nil || interval <= 0 {
			invalid = append(invalid, "BOOKING_DISPATCH_INTERVAL")
		} else {
			cfg.DispatchInterval = interval
		}
	}

	if batchValue := strings.TrimSpace(os.Getenv("BOOKING_DISPATCH_BATCH")); batchValue != "" {
		batch, err := strconv.Atoi(batchValue)
		if err != nil || batch <= 0 {
			invalid = append(invalid, "BOOKING_DISPATCH_BATCH")
		} else {
			cfg.DispatchBatch = batch
		}
	}

	cfg.AMQPURL = strings.TrimSpace(os.Getenv("BOOKING_AMQP_URL"))
	if queue := strings.TrimSpace(os.Getenv("BOOKING_AMQP_QUEUE")); queue != "" {
		cfg.AMQPQueue = queue
	}

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("環境変数の値が不正です: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

// BusinessLocation resolves the configured business timezone.
func (c Config) BusinessLocation() (*time.Location, error) {
	return time.LoadLocation(c.BusinessTimezone)
}

var kindCapKeys = map[string]scheduler.ResourceKind{
	"BOOKING_DAILY_CAP_ROOM":             scheduler.ResourceKindRoom,
	"BOOKING_DAILY_CAP_VEHICLE":          scheduler.ResourceKindVehicle,
	"BOOKING_DAILY_CAP_SAMPLE_EQUIPMENT": scheduler.ResourceKindSampleEquipment,
}

func loadKindCaps() (map[scheduler.ResourceKind]int, []string) {
	caps := make(map[scheduler.ResourceKind]int)
	var invalid []string
	for key, kind := range kindCapKeys {
		value := strings.TrimSpace(os.Getenv(key))
		if value == "" {
			continue
		}
		cap, err := strconv.Atoi(value)
		if err != nil || cap <= 0 {
			invalid = append(invalid, key)
			continue
		}
		caps[kind] = cap
	}
	if len(caps) == 0 {
		caps = nil
	}
	return caps, invalid
}

package geo

import (
	"fmt"
	"log/slog"
	"net"

	"github.com/oschwald/geoip2-golang"
)

// IPLocator resolves an IP address to country and city names using a
// MaxMind GeoLite2 City database opened once at startup.
type IPLocator struct {
	reader *geoip2.Reader
}

// NewIPLocator opens the MaxMind database at path.
func NewIPLocator(path string) (*IPLocator, error) {
	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open geoip database: %w", err)
	}

	slog.Info("[Geo] GeoIP database opened", "path", path)
	return &IPLocator{reader: reader}, nil
}

// Locate returns the English country and city names for ip. Lookup
// failures are not errors for the caller: both values degrade to
// "Unknown", which the coordinate resolver treats as a guaranteed miss.
func (l *IPLocator) Locate(ip string) (country, city string) {
	addr := net.ParseIP(ip)
	if addr == nil {
		slog.Debug("[Geo] Unparsable IP address", "ip", ip)
		return unknownCity, unknownCity
	}

	record, err := l.reader.City(addr)
	if err != nil {
		slog.Warn("[Geo] GeoIP lookup failed", "ip", ip, "error", err)
		return unknownCity, unknownCity
	}

	country = record.Country.Names["en"]
	if country == "" {
		country = unknownCity
	}
	city = record.City.Names["en"]
	if city == "" {
		city = unknownCity
	}

	return country, city
}

// Close releases the underlying database reader.
func (l *IPLocator) Close() error {
	return l.reader.Close()
}

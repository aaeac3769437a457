package service

import (
	"fmt"
	"net/netip"
	"slices"
	"strings"
	"time"

	"github.com/sifan077/TinyLink/internal/app/model"
)

const topReferrerLimit = 5

func buildStats(link *model.Link, analytics *model.Analytics, now time.Time) *model.LinkStats {
	details := make([]model.ClickDetail, len(analytics.Details))
	for i, click := range analytics.Details {
		details[i] = model.ClickDetail{
			Timestamp: click.Timestamp,
			Source:    click.Referrer,
			Referrer:  click.Referrer,
			Location:  model.UnknownLocation,
			UserAgent: click.UserAgent,
			IP:        MaskIP(click.IP),
		}
	}

	return &model.LinkStats{
		Code:         link.Code,
		URL:          link.URL,
		TotalClicks:  analytics.Total,
		CreatedAt:    analytics.CreatedAt,
		ExpiresAt:    link.ExpiresAt,
		IsExpired:    false,
		ClickDetails: details,
		Summary: model.StatsSummary{
			AverageClicksPerDay: averageClicksPerDay(analytics.Total, analytics.CreatedAt, now),
			TopReferrers:        topReferrers(analytics.Details, topReferrerLimit),
			TopLocations: []model.LocationCount{
				{Location: model.UnknownLocation, Count: analytics.Total},
			},
		},
	}
}

// topReferrers ranks referrers by click count. Equal counts keep first-seen order.
func topReferrers(clicks []model.ClickEvent, limit int) []model.ReferrerCount {
	ranked := make([]model.ReferrerCount, 0)
	index := make(map[string]int)
	for _, click := range clicks {
		ref := orDefault(click.Referrer, directReferrer)
		if i, ok := index[ref]; ok {
			ranked[i].Count++
			continue
		}
		index[ref] = len(ranked)
		ranked = append(ranked, model.ReferrerCount{Referrer: ref, Count: 1})
	}

	slices.SortStableFunc(ranked, func(a, b model.ReferrerCount) int {
		return b.Count - a.Count
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// averageClicksPerDay divides by whole days since creation, never less than one.
func averageClicksPerDay(total int, createdAt, now time.Time) float64 {
	days := int(now.Sub(createdAt) / (24 * time.Hour))
	if days < 1 {
		days = 1
	}
	return float64(total) / float64(days)
}

// MaskIP hides the last segment of an address: 203.0.113.7 becomes 203.0.113.xxx
// and 2001:db8::1 becomes 2001:db8::xxxx. Ports and zones are dropped and
// IPv4-mapped IPv6 addresses are reported as IPv4. Already masked values are
// returned unchanged; anything else that does not parse becomes "unknown".
func MaskIP(ip string) string {
	ip = strings.TrimSpace(ip)
	if strings.HasSuffix(ip, ".xxx") || strings.HasSuffix(ip, ":xxxx") {
		return ip
	}

	addr, ok := parseClientAddr(ip)
	if !ok {
		return unknownClientValue
	}

	addr = addr.Unmap().WithZone("")
	if addr.Is4() {
		b := addr.As4()
		return fmt.Sprintf("%d.%d.%d.xxx", b[0], b[1], b[2])
	}

	s := addr.String()
	return s[:strings.LastIndexByte(s, ':')+1] + "xxxx"
}

func parseClientAddr(ip string) (netip.Addr, bool) {
	if ap, err := netip.ParseAddrPort(ip); err == nil {
		return ap.Addr(), true
	}
	if addr, err := netip.ParseAddr(strings.Trim(ip, "[]")); err == nil {
		return addr, true
	}
	return netip.Addr{}, false
}

package toolset

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/netip"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tansive/francine/internal/francine/tools"
)

const (
	searchResults = 10
	whoisTimeout  = 10 * time.Second
	maxWhoisBytes = 1 << 20
)

// Recon holds the lookups behind the OSINT tools.
type Recon struct {
	web      *Web
	resolver *net.Resolver
	dialer   *net.Dialer
	now      func() time.Time
}

// NewRecon builds Recon on web. A nil resolver uses net.DefaultResolver.
func NewRecon(web *Web, resolver *net.Resolver) *Recon {
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	return &Recon{
		web:      web,
		resolver: resolver,
		dialer:   &net.Dialer{Timeout: whoisTimeout},
		now:      time.Now,
	}
}

// DNSRecords holds the record sets recon_domain reports.
type DNSRecords struct {
	A  []string `json:"A"`
	MX []string `json:"MX"`
	NS []string `json:"NS"`
}

// DomainReport is the result of recon_domain.
type DomainReport struct {
	Domain string     `json:"domain"`
	Whois  string     `json:"whois"`
	DNS    DNSRecords `json:"dns"`
}

// Domain resolves A, MX and NS records and fetches WHOIS data. Lookup
// failures leave the affected field empty.
func (r *Recon) Domain(ctx context.Context, domain string) (DomainReport, error) {
	domain = strings.TrimSuffix(strings.TrimSpace(domain), ".")
	if domain == "" || strings.ContainsAny(domain, " /") {
		return DomainReport{}, ErrInvalidInput.Msg("invalid domain: " + domain)
	}
	report := DomainReport{Domain: domain, DNS: DNSRecords{A: []string{}, MX: []string{}, NS: []string{}}}

	if ips, err := r.resolver.LookupIP(ctx, "ip4", domain); err == nil {
		for _, ip := range ips {
			report.DNS.A = append(report.DNS.A, ip.String())
		}
	} else {
		log.Ctx(ctx).Debug().Err(err).Str("domain", domain).Msg("A lookup failed")
	}
	if mxs, err := r.resolver.LookupMX(ctx, domain); err == nil {
		for _, mx := range mxs {
			report.DNS.MX = append(report.DNS.MX, fmt.Sprintf("%d %s", mx.Pref, mx.Host))
		}
	} else {
		log.Ctx(ctx).Debug().Err(err).Str("domain", domain).Msg("MX lookup failed")
	}
	if nss, err := r.resolver.LookupNS(ctx, domain); err == nil {
		for _, ns := range nss {
			report.DNS.NS = append(report.DNS.NS, ns.Host)
		}
	} else {
		log.Ctx(ctx).Debug().Err(err).Str("domain", domain).Msg("NS lookup failed")
	}
	sort.Strings(report.DNS.A)
	sort.Strings(report.DNS.NS)

	text, err := r.Whois(ctx, domain)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("domain", domain).Msg("whois lookup failed")
	}
	report.Whois = text
	return report, nil
}

// Whois queries the configured server and follows a single "refer:" line.
func (r *Recon) Whois(ctx context.Context, query string) (string, error) {
	server := r.web.endpoints.WhoisServer
	text, err := r.whoisQuery(ctx, server, query)
	if err != nil {
		return "", err
	}
	if refer := referral(text); refer != "" {
		if !strings.Contains(refer, ":") {
			refer = net.JoinHostPort(refer, "43")
		}
		if refer != server {
			if more, err := r.whoisQuery(ctx, refer, query); err == nil && strings.TrimSpace(more) != "" {
				return more, nil
			}
		}
	}
	return text, nil
}

func (r *Recon) whoisQuery(ctx context.Context, server, query string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, whoisTimeout)
	defer cancel()
	conn, err := r.dialer.DialContext(ctx, "tcp", server)
	if err != nil {
		return "", ErrFetchFailed.MsgErr("unable to reach whois server "+server, err)
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	if _, err := io.WriteString(conn, query+"\r\n"); err != nil {
		return "", ErrFetchFailed.MsgErr("whois write failed", err)
	}
	data, err := io.ReadAll(io.LimitReader(conn, maxWhoisBytes))
	if err != nil && len(data) == 0 {
		return "", ErrFetchFailed.MsgErr("whois read failed", err)
	}
	return string(data), nil
}

func referral(text string) string {
	sc := bufio.NewScanner(strings.NewReader(text))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "refer", "whois", "registrar whois server":
			v := strings.TrimSpace(value)
			v = strings.TrimPrefix(strings.TrimPrefix(v, "whois://"), "rwhois://")
			if v != "" {
				return v
			}
		}
	}
	return ""
}

// IP returns the ip-api.com record for ip.
func (r *Recon) IP(ctx context.Context, ip string) (map[string]any, error) {
	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil {
		return nil, ErrInvalidInput.Msg("invalid IP address: " + ip)
	}
	data, err := r.web.fetch(ctx, strings.TrimSuffix(r.web.endpoints.IPAPI, "/")+"/"+url.PathEscape(addr.String()), nil)
	if err != nil {
		return nil, err
	}
	info := map[string]any{}
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, ErrFetchFailed.MsgErr("ip-api returned invalid JSON", err)
	}
	return info, nil
}

// SpiderfootScan records a scan request for target.
func (r *Recon) SpiderfootScan(ctx context.Context, target string) (map[string]any, error) {
	if strings.TrimSpace(target) == "" {
		return nil, ErrInvalidInput.Msg("scan target is empty")
	}
	return map[string]any{
		"target":    target,
		"status":    "scan_initiated",
		"report_id": fmt.Sprintf("SF-%d", r.now().Unix()),
	}, nil
}

func (r *Recon) search(field string, query func(args map[string]any) string) tools.Capability {
	return tools.CapabilityFunc(func(ctx context.Context, args map[string]any) (any, error) {
		q := query(args)
		log.Ctx(ctx).Debug().Str("field", field).Str("query", q).Msg("osint search")
		return r.web.Search(ctx, q, searchResults)
	})
}

// Tools returns the raw_hits OSINT tools.
func (r *Recon) Tools() []tools.Tool {
	return []tools.Tool{
		tools.New("recon_username", "Performs OSINT on a given username across various platforms.", tools.FamilyRawHits,
			r.search("u", func(a map[string]any) string { return tools.StringArg(a, "u", "") }),
			tools.Required("u", "string", "The username to perform OSINT on."),
		).WithBlocking(),
		tools.New("recon_email", "Performs OSINT on a given email address.", tools.FamilyRawHits,
			r.search("e", func(a map[string]any) string { return tools.StringArg(a, "e", "") }),
			tools.Required("e", "string", "The email address to perform OSINT on."),
		).WithBlocking(),
		tools.New("recon_person", "Performs OSINT on a person given their name and location.", tools.FamilyRawHits,
			r.search("name", func(a map[string]any) string {
				return fmt.Sprintf("%q %s", tools.StringArg(a, "name", ""), tools.StringArg(a, "loc", ""))
			}),
			tools.Required("name", "string", "The person's full name."),
			tools.Required("loc", "string", "The person's location."),
		).WithBlocking(),
		tools.New("recon_vehicle", "Performs OSINT on a vehicle given its VIN.", tools.FamilyRawHits,
			r.search("vin", func(a map[string]any) string { return tools.StringArg(a, "vin", "") }),
			tools.Required("vin", "string", "The Vehicle Identification Number (VIN)."),
		).WithBlocking(),
		tools.New("recon_domain", "Performs OSINT on a domain, including WHOIS and DNS records.", tools.FamilyRawHits,
			tools.CapabilityFunc(func(ctx context.Context, args map[string]any) (any, error) {
				return r.Domain(ctx, tools.StringArg(args, "dom", ""))
			}),
			tools.Required("dom", "string", "The domain name."),
		).WithBlocking(),
		tools.New("recon_ip", "Performs OSINT on an IP address.", tools.FamilyRawHits,
			tools.CapabilityFunc(func(ctx context.Context, args map[string]any) (any, error) {
				return r.IP(ctx, tools.StringArg(args, "ip", ""))
			}),
			tools.Required("ip", "string", "The IP address."),
		).WithBlocking(),
		tools.New("spiderfoot_scan", "Initiates a SpiderFoot scan and returns the path to the JSON report.", tools.FamilyRawHits,
			tools.CapabilityFunc(func(ctx context.Context, args map[string]any) (any, error) {
				return r.SpiderfootScan(ctx, tools.StringArg(args, "target", ""))
			}),
			tools.Required("target", "string", "The target for the SpiderFoot scan (e.g., domain, IP, username)."),
		),
	}
}

package ovsdb

import (
    "net/netip"
    "strconv"
    "strings"
)

// Address is a parsed OVSDB connection string such as "ssl:10.0.0.1:6644".
type Address struct {
    Scheme string
    IP     netip.Addr
    Port   int
}

func (a Address) String() string { return FormatAddress(a.Scheme, a.IP.String(), a.Port) }

// FormatAddress renders scheme:ip:port. IPv6 addresses are written inline
// without brackets, matching what ovsdb-server reports.
func FormatAddress(scheme, ip string, port int) string {
    return scheme + ":" + strings.Trim(ip, "[]") + ":" + strconv.Itoa(port)
}

// ParseAddress splits a connection string on its outer colons: the first
// token is the scheme, the last the port and everything in between the IP.
// This keeps inline IPv6 addresses intact.
func ParseAddress(conn string) (Address, error) {
    first := strings.Index(conn, ":")
    last := strings.LastIndex(conn, ":")
    if first <= 0 || last == first {
        return Address{}, &ParseError{Field: "member address", Value: conn, Msg: "has unexpected format"}
    }
    scheme := conn[:first]
    host := strings.Trim(conn[first+1:last], "[]")
    port, err := strconv.Atoi(conn[last+1:])
    if err != nil || port < 0 || port > 65535 {
        return Address{}, &ParseError{Field: "member address", Value: conn, Msg: "has invalid port"}
    }
    ip, err := netip.ParseAddr(host)
    if err != nil {
        return Address{}, &ParseError{Field: "member address", Value: conn, Msg: "has invalid IP"}
    }
    return Address{Scheme: scheme, IP: ip, Port: port}, nil
}

// SameIP compares an IP string against a parsed address, normalising IPv6
// spellings. Unparseable input never matches.
func SameIP(ip string, a Address) bool {
    want, err := netip.ParseAddr(strings.Trim(strings.TrimSpace(ip), "[]"))
    if err != nil { return false }
    return want.Unmap() == a.IP.Unmap()
}

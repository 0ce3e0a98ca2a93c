package gitrepo

import "fmt"

// ServiceAnnouncement builds the smart-HTTP handshake prefix: one
// pkt-line carrying "# service=<name>\n" followed by a flush-pkt. The
// length prefix is four lowercase hex digits counting the payload plus
// its own four bytes.
func ServiceAnnouncement(service string) []byte {
	packet := "# service=" + service + "\n"
	return []byte(fmt.Sprintf("%04x%s0000", len(packet)+4, packet))
}

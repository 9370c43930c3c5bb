package mockservers

import (
	"bufio"
	"net"
	"strings"
	"sync"
	"testing"
)

// SMTPMessage is one message accepted by SMTPMockServer.
type SMTPMessage struct {
	From string
	To   []string
	Data string
}

// SMTPMockServer is a plaintext SMTP server that accepts every message. It
// advertises no extensions, so clients skip STARTTLS and AUTH.
type SMTPMockServer struct {
	Addr string
	// RejectRcpt makes RCPT TO fail for the listed addresses.
	RejectRcpt map[string]bool

	listener net.Listener
	mu       sync.Mutex
	messages []SMTPMessage
}

// NewSMTPMockServer starts a server on a random local port.
func NewSMTPMockServer(t *testing.T) *SMTPMockServer {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	mock := &SMTPMockServer{
		Addr:       ln.Addr().String(),
		RejectRcpt: make(map[string]bool),
		listener:   ln,
	}

	go mock.serve()
	t.Cleanup(func() { ln.Close() })

	return mock
}

// Host returns the listening host.
func (m *SMTPMockServer) Host() string {
	host, _, _ := net.SplitHostPort(m.Addr)
	return host
}

// Port returns the listening port.
func (m *SMTPMockServer) Port() int {
	return m.listener.Addr().(*net.TCPAddr).Port
}

// Messages returns the messages received so far.
func (m *SMTPMockServer) Messages() []SMTPMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SMTPMessage(nil), m.messages...)
}

func (m *SMTPMockServer) serve() {
	for {
		conn, err := m.listener.Accept()
		if err != nil {
			return
		}
		go m.handle(conn)
	}
}

func (m *SMTPMockServer) handle(conn net.Conn) {
	defer conn.Close()

	r := bufio.NewReader(conn)
	reply := func(line string) {
		conn.Write([]byte(line + "\r\n"))
	}

	reply("220 localhost mock ESMTP")

	var cur SMTPMessage
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimRight(line, "\r\n")
		verb := strings.ToUpper(line)

		switch {
		case strings.HasPrefix(verb, "EHLO"), strings.HasPrefix(verb, "HELO"):
			reply("250 localhost")
		case strings.HasPrefix(verb, "MAIL FROM:"):
			cur = SMTPMessage{From: trimAddr(line[len("MAIL FROM:"):])}
			reply("250 OK")
		case strings.HasPrefix(verb, "RCPT TO:"):
			addr := trimAddr(line[len("RCPT TO:"):])
			m.mu.Lock()
			rejected := m.RejectRcpt[addr]
			m.mu.Unlock()
			if rejected {
				reply("550 no such user")
				continue
			}
			cur.To = append(cur.To, addr)
			reply("250 OK")
		case verb == "DATA":
			reply("354 end with <CRLF>.<CRLF>")
			var data strings.Builder
			for {
				l, err := r.ReadString('\n')
				if err != nil {
					return
				}
				if l == ".\r\n" {
					break
				}
				data.WriteString(l)
			}
			cur.Data = data.String()
			m.mu.Lock()
			m.messages = append(m.messages, cur)
			m.mu.Unlock()
			reply("250 OK queued")
		case verb == "NOOP", verb == "RSET":
			reply("250 OK")
		case verb == "QUIT":
			reply("221 bye")
			return
		default:
			reply("502 command not implemented")
		}
	}
}

func trimAddr(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, ' '); i >= 0 {
		s = s[:i]
	}
	return strings.Trim(s, "<>")
}

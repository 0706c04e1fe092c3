package connector

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-imap/v2"
	giimapserver "github.com/emersion/go-imap/v2/imapserver"
	giimapmemserver "github.com/emersion/go-imap/v2/imapserver/imapmemserver"
)

const (
	testUser = "user@example.com"
	testPass = "password"
)

type literalReader struct {
	*bytes.Reader
	size int64
}

func newLiteral(t *testing.T, raw string) imap.LiteralReader {
	t.Helper()
	buf := []byte(raw)
	return &literalReader{
		Reader: bytes.NewReader(buf),
		size:   int64(len(buf)),
	}
}

func (lr *literalReader) Size() int64 {
	return lr.size
}

type testMessage struct {
	Mailbox string
	From    string
	To      string
	Subject string
	Body    string
	Date    time.Time
	NoDate  bool
}

func sampleMessage(msg testMessage) string {
	builder := &strings.Builder{}
	builder.WriteString("From: ")
	builder.WriteString(msg.From)
	builder.WriteString("\r\n")
	builder.WriteString("To: ")
	builder.WriteString(msg.To)
	builder.WriteString("\r\n")
	builder.WriteString("Subject: ")
	builder.WriteString(msg.Subject)
	builder.WriteString("\r\n")
	if !msg.NoDate {
		date := msg.Date
		if date.IsZero() {
			date = time.Now()
		}
		builder.WriteString("Date: ")
		builder.WriteString(date.Format(time.RFC1123Z))
		builder.WriteString("\r\n")
	}
	builder.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	builder.WriteString("\r\n")
	builder.WriteString(msg.Body)
	builder.WriteString("\r\n")
	return builder.String()
}

type testServer struct {
	host string
	port int
	user *giimapmemserver.User
}

// startTestServer runs an in-memory IMAP server over TLS with the given
// mailboxes populated. Returned UIDs are keyed by mailbox in append order.
func startTestServer(t *testing.T, mailboxes []string, messages []testMessage) (*testServer, map[string][]uint32) {
	t.Helper()

	tlsConfig := testTLSConfig(t)
	mem := giimapmemserver.New()
	user := giimapmemserver.NewUser(testUser, testPass)
	mem.AddUser(user)

	for _, mailbox := range mailboxes {
		if err := user.Create(mailbox, nil); err != nil {
			t.Fatalf("create mailbox %q: %v", mailbox, err)
		}
	}

	uids := make(map[string][]uint32)
	for _, msg := range messages {
		appendTime := msg.Date
		if appendTime.IsZero() {
			appendTime = time.Now()
		}
		data, err := user.Append(msg.Mailbox, newLiteral(t, sampleMessage(msg)),
			&imap.AppendOptions{Time: appendTime})
		if err != nil {
			t.Fatalf("append message: %v", err)
		}
		uids[msg.Mailbox] = append(uids[msg.Mailbox], uint32(data.UID))
	}

	server := giimapserver.New(&giimapserver.Options{
		NewSession: func(*giimapserver.Conn) (giimapserver.Session, *giimapserver.GreetingData, error) {
			return mem.NewSession(), nil, nil
		},
		TLSConfig:    tlsConfig,
		InsecureAuth: true,
	})

	ln, err := tls.Listen("tcp", "127.0.0.1:0", tlsConfig)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve(ln)
	}()

	t.Cleanup(func() {
		_ = server.Close()
		_ = ln.Close()
		select {
		case <-errCh:
		default:
		}
	})

	host, portRaw, err := net.SplitHostPort(ln.Addr().String())
	if err != nil {
		t.Fatalf("split addr: %v", err)
	}
	port, err := strconv.Atoi(portRaw)
	if err != nil {
		t.Fatalf("parse port: %v", err)
	}

	return &testServer{host: host, port: port, user: user}, uids
}

func testTLSConfig(t *testing.T) *tls.Config {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	serial, err := rand.Int(rand.Reader, big.NewInt(1<<62))
	if err != nil {
		t.Fatalf("generate serial: %v", err)
	}

	template := x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			CommonName: "localhost",
		},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		DNSNames:              []string{"localhost"},
		IPAddresses:           []net.IP{net.ParseIP("127.0.0.1")},
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
	}

	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("create cert: %v", err)
	}

	cert := tls.Certificate{
		Certificate: [][]byte{der},
		PrivateKey:  key,
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		NextProtos:   []string{"imap"},
	}
}

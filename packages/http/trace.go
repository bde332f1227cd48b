package http

import (
	"crypto/tls"
	"net"
	"net/http/httptrace"
	"strconv"
	"sync"
	"time"
)

// transferTrace records connection timings for the Info map. Callbacks can
// fire from dialer goroutines, hence the lock.
type transferTrace struct {
	mu           sync.Mutex
	start        time.Time
	dnsDone      time.Time
	connectDone  time.Time
	tlsDone      time.Time
	wroteRequest time.Time
	firstByte    time.Time
	remoteAddr   net.Addr
	localAddr    net.Addr
}

func newTransferTrace() *transferTrace {
	return &transferTrace{start: time.Now()}
}

func (t *transferTrace) mark(field *time.Time) {
	t.mu.Lock()
	*field = time.Now()
	t.mu.Unlock()
}

func (t *transferTrace) clientTrace() *httptrace.ClientTrace {
	return &httptrace.ClientTrace{
		DNSDone: func(httptrace.DNSDoneInfo) {
			t.mark(&t.dnsDone)
		},
		ConnectDone: func(network, addr string, err error) {
			if err == nil {
				t.mark(&t.connectDone)
			}
		},
		TLSHandshakeDone: func(_ tls.ConnectionState, err error) {
			if err == nil {
				t.mark(&t.tlsDone)
			}
		},
		GotConn: func(info httptrace.GotConnInfo) {
			t.mu.Lock()
			t.remoteAddr = info.Conn.RemoteAddr()
			t.localAddr = info.Conn.LocalAddr()
			t.mu.Unlock()
		},
		WroteRequest: func(httptrace.WroteRequestInfo) {
			t.mark(&t.wroteRequest)
		},
		GotFirstResponseByte: func() {
			t.mark(&t.firstByte)
		},
	}
}

// fill copies the recorded timings into info as seconds since start.
func (t *transferTrace) fill(info Info) {
	t.mu.Lock()
	defer t.mu.Unlock()

	since := func(at time.Time) float64 {
		if at.IsZero() {
			return 0
		}
		return at.Sub(t.start).Seconds()
	}

	info["namelookup_time"] = since(t.dnsDone)
	info["connect_time"] = since(t.connectDone)
	info["appconnect_time"] = since(t.tlsDone)
	info["pretransfer_time"] = since(t.wroteRequest)
	info["starttransfer_time"] = since(t.firstByte)

	info["primary_ip"], info["primary_port"] = splitAddr(t.remoteAddr)
	info["local_ip"], info["local_port"] = splitAddr(t.localAddr)
}

func splitAddr(addr net.Addr) (string, int) {
	if addr == nil {
		return "", 0
	}
	host, port, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String(), 0
	}
	p, _ := strconv.Atoi(port)
	return host, p
}

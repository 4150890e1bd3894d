package ingest

import (
	"errors"
	"fmt"
	"log"
	"net"
	"sync"
	"sync/atomic"
)

// maxDatagramSize is larger than any syslog message seen in practice;
// UDP syslog senders rarely exceed the traditional 1024 bytes.
const maxDatagramSize = 65536

// Datagram is one received UDP payload with its origin.
type Datagram struct {
	Data []byte
	IP   string
	Port int
}

// UDPServer reads syslog datagrams off the wire and queues them for
// the router. The queue decouples socket reads from parsing and
// storage; when it is full the datagram is dropped rather than letting
// kernel buffers back up silently.
type UDPServer struct {
	conn    *net.UDPConn
	out     chan Datagram
	dropped atomic.Int64
	wg      sync.WaitGroup
}

// ListenUDP binds host:port and starts the read loop. Port 0 picks a
// free port; see Port.
func ListenUDP(host string, port, queueSize int) (*UDPServer, error) {
	if queueSize <= 0 {
		queueSize = 8192
	}
	var ip net.IP
	if host != "" {
		ip = net.ParseIP(host)
		if ip == nil {
			return nil, fmt.Errorf("udp listen: invalid host %q", host)
		}
	}
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: ip, Port: port})
	if err != nil {
		return nil, fmt.Errorf("udp listen: %w", err)
	}
	s := &UDPServer{
		conn: conn,
		out:  make(chan Datagram, queueSize),
	}
	s.wg.Add(1)
	go s.readLoop()
	log.Printf("[udp] listening on %s", conn.LocalAddr())
	return s, nil
}

// Port returns the bound port.
func (s *UDPServer) Port() int {
	return s.conn.LocalAddr().(*net.UDPAddr).Port
}

// Datagrams is the queue the router consumes. It is closed after Close.
func (s *UDPServer) Datagrams() <-chan Datagram {
	return s.out
}

// Dropped reports datagrams discarded because the queue was full.
func (s *UDPServer) Dropped() int64 {
	return s.dropped.Load()
}

// Close stops the read loop and closes the datagram queue. Entries
// already queued remain readable until drained.
func (s *UDPServer) Close() error {
	err := s.conn.Close()
	s.wg.Wait()
	return err
}

func (s *UDPServer) readLoop() {
	defer s.wg.Done()
	defer close(s.out)

	buf := make([]byte, maxDatagramSize)
	for {
		n, addr, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			log.Printf("[udp] read: %v", err)
			continue
		}
		data := make([]byte, n)
		copy(data, buf[:n])
		select {
		case s.out <- Datagram{Data: data, IP: addr.IP.String(), Port: addr.Port}:
		default:
			if d := s.dropped.Add(1); d == 1 || d%1000 == 0 {
				log.Printf("[udp] queue full, %d datagrams dropped so far", d)
			}
		}
	}
}

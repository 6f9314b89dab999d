package broadcast

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"feedenginev1/internal/metrics"
)

// readTimeout bounds every blocking read so the loop can observe the
// stop flag at least once a second.
const readTimeout = 1 * time.Second

// Receiver owns one multicast (group, port) subscription. Each receiver
// runs its own goroutine; receivers share no mutable state and hand every
// datagram synchronously to their demux.
type Receiver struct {
	feed  string
	group string
	port  int
	demux *Demux
	met   *metrics.Metrics
	log   *slog.Logger

	conn *net.UDPConn
}

// NewReceiver wires a receiver to its feed's demultiplexer. The socket is
// not opened until Open is called.
func NewReceiver(feed, group string, port int, demux *Demux, met *metrics.Metrics, log *slog.Logger) *Receiver {
	return &Receiver{
		feed:  feed,
		group: group,
		port:  port,
		demux: demux,
		met:   met,
		log:   log.With(slog.String("feed", feed)),
	}
}

// Open creates the datagram socket, binds the port with address reuse and
// joins the multicast group on the any-interface.
func (r *Receiver) Open() error {
	ip := net.ParseIP(r.group)
	if ip == nil {
		return fmt.Errorf("receiver %s: bad multicast group %q", r.feed, r.group)
	}
	conn, err := net.ListenMulticastUDP("udp4", nil, &net.UDPAddr{IP: ip, Port: r.port})
	if err != nil {
		return fmt.Errorf("receiver %s: join %s:%d: %w", r.feed, r.group, r.port, err)
	}
	// Size the kernel buffer for burst absorption; best effort.
	conn.SetReadBuffer(4 << 20)
	r.conn = conn
	r.log.Info("joined multicast group",
		slog.String("group", r.group), slog.Int("port", r.port))
	return nil
}

// loop is the receive loop: deadline, read, stamp, demux, repeat. It
// returns when the shared stop flag is raised.
func (r *Receiver) loop(stop *atomic.Bool) {
	buf := make([]byte, MaxDatagramSize)
	var lastPacket time.Time

	for !stop.Load() {
		r.conn.SetReadDeadline(time.Now().Add(readTimeout))
		n, _, err := r.conn.ReadFromUDP(buf)
		if err != nil {
			var nerr net.Error
			if errors.As(err, &nerr) && nerr.Timeout() {
				if r.met != nil {
					r.met.ReceiverTimeouts.WithLabelValues(r.feed).Inc()
					if !lastPacket.IsZero() {
						r.met.LastPacketAge.WithLabelValues(r.feed).Set(time.Since(lastPacket).Seconds())
					}
				}
				continue
			}
			if stop.Load() {
				return
			}
			r.log.Error("read failed", slog.String("err", err.Error()))
			continue
		}
		if n == 0 {
			continue
		}
		lastPacket = time.Now()
		if r.met != nil {
			r.met.LastPacketAge.WithLabelValues(r.feed).Set(0)
		}
		r.demux.HandleDatagram(buf[:n], lastPacket.UnixMicro())
	}
}

// Pool runs a set of receivers under one process-wide stop flag.
type Pool struct {
	receivers []*Receiver
	stop      atomic.Bool
	wg        sync.WaitGroup
	log       *slog.Logger
}

func NewPool(log *slog.Logger) *Pool {
	return &Pool{log: log}
}

// Add registers a receiver. Must be called before Start.
func (p *Pool) Add(r *Receiver) {
	p.receivers = append(p.receivers, r)
}

// Len returns the number of registered receivers.
func (p *Pool) Len() int { return len(p.receivers) }

// Start opens every socket and launches the receive loops. If any socket
// fails to open, previously opened ones are closed and nothing runs.
func (p *Pool) Start() error {
	for i, r := range p.receivers {
		if err := r.Open(); err != nil {
			for _, prev := range p.receivers[:i] {
				prev.conn.Close()
			}
			return err
		}
	}
	for _, r := range p.receivers {
		p.wg.Add(1)
		go func(r *Receiver) {
			defer p.wg.Done()
			r.loop(&p.stop)
		}(r)
	}
	p.log.Info("receiver pool started", slog.Int("feeds", len(p.receivers)))
	return nil
}

// Stop raises the stop flag, waits for the loops to observe it and closes
// the sockets.
func (p *Pool) Stop() {
	p.stop.Store(true)
	p.wg.Wait()
	for _, r := range p.receivers {
		if r.conn != nil {
			r.conn.Close()
		}
	}
	p.log.Info("receiver pool stopped")
}

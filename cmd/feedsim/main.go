// feedsim publishes synthetic exchange broadcast datagrams to a multicast
// group so the engine can be exercised without an exchange line. It frames
// messages exactly like the production feed but always sends them
// uncompressed (zero length prefix), which the demultiplexer accepts for
// every transaction code.
package main

import (
	"encoding/binary"
	"log"
	"math"
	"math/rand"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	envelopeSize = 4
	preludeSize  = 8
	headerSize   = 40
)

type simInstrument struct {
	token uint32
	price float64
	tick  float64
}

type simulator struct {
	bo       binary.ByteOrder
	seq      uint32
	rng      *rand.Rand
	instrs   []simInstrument
	indices  []string
	indexVal []float64
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	log.Println("[feedsim] starting...")

	group := getEnv("SIM_GROUP", "233.1.2.5")
	port, _ := strconv.Atoi(getEnv("SIM_PORT", "34330"))
	endian := getEnv("SIM_ENDIAN", "be")
	rateMs, _ := strconv.Atoi(getEnv("SIM_INTERVAL_MS", "100"))
	tokens := parseTokens(getEnv("SIM_TOKENS", "2885,26000,35001,49543"))

	var bo binary.ByteOrder = binary.BigEndian
	if strings.EqualFold(endian, "le") {
		bo = binary.LittleEndian
	}

	ip := net.ParseIP(group)
	if ip == nil {
		log.Fatalf("[feedsim] bad multicast group %q", group)
	}
	conn, err := net.DialUDP("udp4", nil, &net.UDPAddr{IP: ip, Port: port})
	if err != nil {
		log.Fatalf("[feedsim] dial %s:%d: %v", group, port, err)
	}
	defer conn.Close()

	sim := &simulator{
		bo:       bo,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		indices:  []string{"NIFTY 50", "NIFTY BANK", "NIFTY IT"},
		indexVal: []float64{24350.00, 51200.00, 36100.00},
	}
	for i, tok := range tokens {
		sim.instrs = append(sim.instrs, simInstrument{
			token: tok,
			price: 100 + float64(i)*250,
			tick:  0.05,
		})
	}

	log.Printf("[feedsim] publishing to %s:%d (%s) every %dms, %d tokens",
		group, port, endian, rateMs, len(sim.instrs))

	ticker := time.NewTicker(time.Duration(rateMs) * time.Millisecond)
	defer ticker.Stop()

	var n int
	for range ticker.C {
		var pkt []byte
		switch n % 10 {
		case 0:
			pkt = sim.indicesPacket()
		case 1:
			pkt = sim.openPricePacket()
		case 2:
			pkt = sim.touchlinePacket()
		default:
			pkt = sim.tickerPacket()
		}
		if _, err := conn.Write(pkt); err != nil {
			log.Printf("[feedsim] write failed: %v", err)
		}
		n++
		if n%100 == 0 {
			log.Printf("[feedsim] %d datagrams sent, seq=%d", n, sim.seq)
		}
	}
}

// frame wraps one raw message body in the datagram envelope: message count,
// zero compressed-length prefix, prelude and broadcast header.
func (s *simulator) frame(txCode uint16, payload []byte) []byte {
	s.seq++
	msgLen := headerSize + len(payload)

	buf := make([]byte, envelopeSize+2+preludeSize+msgLen)
	s.bo.PutUint16(buf[2:4], 1) // one message per datagram

	off := envelopeSize
	s.bo.PutUint16(buf[off:off+2], 0) // uncompressed
	off += 2 + preludeSize

	hdr := buf[off:]
	s.bo.PutUint32(hdr[4:8], uint32(time.Now().Unix()))
	s.bo.PutUint16(hdr[10:12], txCode)
	s.bo.PutUint32(hdr[14:18], s.seq)
	s.bo.PutUint16(hdr[38:40], uint16(msgLen))
	copy(hdr[headerSize:], payload)
	return buf
}

// tickerPacket emits a 7202 fill report for every instrument.
func (s *simulator) tickerPacket() []byte {
	const recSize = 26
	payload := make([]byte, 2+len(s.instrs)*recSize)
	s.bo.PutUint16(payload[0:2], uint16(len(s.instrs)))
	for i := range s.instrs {
		in := &s.instrs[i]
		in.price = s.walk(in.price, in.tick)
		r := payload[2+i*recSize:]
		s.bo.PutUint32(r[0:4], in.token)
		s.bo.PutUint16(r[4:6], 1) // normal market
		s.bo.PutUint32(r[6:10], paise(in.price))
		s.bo.PutUint32(r[10:14], uint32(1+s.rng.Intn(500)))
		s.bo.PutUint32(r[14:18], uint32(10000+s.rng.Intn(90000))) // OI
	}
	return s.frame(7202, payload)
}

// touchlinePacket emits a full 7200 touchline with depth for one instrument.
func (s *simulator) touchlinePacket() []byte {
	const bodySize = 369
	in := &s.instrs[s.rng.Intn(len(s.instrs))]
	in.price = s.walk(in.price, in.tick)

	payload := make([]byte, bodySize)
	s.bo.PutUint32(payload[0:4], in.token)
	s.bo.PutUint16(payload[4:6], 1)                            // book type
	s.bo.PutUint16(payload[6:8], 1)                            // trading status
	s.bo.PutUint32(payload[8:12], uint32(1000+s.rng.Intn(1e6)))
	s.bo.PutUint32(payload[12:16], paise(in.price))            // LTP
	s.bo.PutUint32(payload[21:25], uint32(1+s.rng.Intn(200))) // LTQ
	s.bo.PutUint32(payload[25:29], uint32(time.Now().Unix()))  // LTT
	s.bo.PutUint32(payload[29:33], paise(in.price))            // ATP

	// Five bid and ask levels around the last price.
	for lvl := 0; lvl < 5; lvl++ {
		b := payload[235+lvl*10:]
		s.bo.PutUint32(b[0:4], uint32(50+s.rng.Intn(500)))
		s.bo.PutUint32(b[4:8], paise(in.price-in.tick*float64(lvl+1)))
		s.bo.PutUint16(b[8:10], uint16(1+s.rng.Intn(20)))
		a := payload[235+(lvl+5)*10:]
		s.bo.PutUint32(a[0:4], uint32(50+s.rng.Intn(500)))
		s.bo.PutUint32(a[4:8], paise(in.price+in.tick*float64(lvl+1)))
		s.bo.PutUint16(a[8:10], uint16(1+s.rng.Intn(20)))
	}

	s.bo.PutUint64(payload[335:343], math.Float64bits(float64(s.rng.Intn(1e6)))) // total buy qty
	s.bo.PutUint64(payload[343:351], math.Float64bits(float64(s.rng.Intn(1e6)))) // total sell qty
	s.bo.PutUint32(payload[353:357], paise(in.price*0.99))                       // close
	s.bo.PutUint32(payload[357:361], paise(in.price*0.995))                      // open
	s.bo.PutUint32(payload[361:365], paise(in.price*1.01))                       // high
	s.bo.PutUint32(payload[365:369], paise(in.price*0.985))                      // low
	return s.frame(7200, payload)
}

// indicesPacket emits a 7207 index broadcast with every simulated index.
func (s *simulator) indicesPacket() []byte {
	const recSize = 71
	payload := make([]byte, 2+len(s.indices)*recSize)
	s.bo.PutUint16(payload[0:2], uint16(len(s.indices)))
	for i, name := range s.indices {
		s.indexVal[i] = s.walk(s.indexVal[i], 0.5)
		v := s.indexVal[i]
		r := payload[2+i*recSize:]
		copy(r[0:21], name)
		s.bo.PutUint32(r[21:25], uint32(v*100))        // value
		s.bo.PutUint32(r[25:29], uint32(v*100*1.005))  // high
		s.bo.PutUint32(r[29:33], uint32(v*100*0.995))  // low
		s.bo.PutUint32(r[33:37], uint32(v*100*0.998))  // open
		s.bo.PutUint32(r[37:41], uint32(v*100*0.997))  // close
		s.bo.PutUint32(r[41:45], uint32(30))           // pct change x100
		s.bo.PutUint64(r[61:69], math.Float64bits(1e12))
	}
	return s.frame(7207, payload)
}

// openPricePacket emits a 6013 open-price message for one instrument.
func (s *simulator) openPricePacket() []byte {
	in := &s.instrs[s.rng.Intn(len(s.instrs))]
	payload := make([]byte, 8)
	s.bo.PutUint32(payload[0:4], in.token)
	s.bo.PutUint32(payload[4:8], paise(in.price))
	return s.frame(6013, payload)
}

// walk applies one random-walk step, clamped positive.
func (s *simulator) walk(price, tick float64) float64 {
	steps := float64(s.rng.Intn(7) - 3)
	next := price + steps*tick
	if next < tick {
		return tick
	}
	return next
}

func paise(v float64) uint32 {
	return uint32(math.Round(v * 100))
}

func parseTokens(csv string) []uint32 {
	var out []uint32
	for _, p := range strings.Split(csv, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.ParseUint(p, 10, 32)
		if err != nil {
			log.Printf("[feedsim] skipping invalid token %q", p)
			continue
		}
		out = append(out, uint32(n))
	}
	if len(out) == 0 {
		log.Fatal("[feedsim] no valid tokens configured")
	}
	return out
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

// Command udp-probe binds the relay's ingest port and prints whatever
// arrives. Useful for checking that a publisher is actually reaching the
// machine before pointing it at a running relay.
package main

import (
	"flag"
	"fmt"
	"log"
	"net"
	"sync/atomic"
	"time"
)

var (
	listen  = flag.String("listen", ":9001", "UDP address to bind")
	payload = flag.Bool("payload", true, "Print each datagram's payload")
)

func main() {
	flag.Parse()

	addr, err := net.ResolveUDPAddr("udp", *listen)
	if err != nil {
		log.Fatal(err)
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close()

	fmt.Printf("UDP probe listening on %s\n", conn.LocalAddr())

	var packetCount int64
	var byteCount int64

	// Statistics goroutine
	go func() {
		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()

		for range ticker.C {
			packets := atomic.SwapInt64(&packetCount, 0)
			bytes := atomic.SwapInt64(&byteCount, 0)
			if packets > 0 {
				fmt.Printf("Received: %d packets/sec, %.1f KB/sec\n",
					packets, float64(bytes)/1024)
			}
		}
	}()

	// Main receive loop
	buffer := make([]byte, 65536)
	for {
		n, from, err := conn.ReadFromUDP(buffer)
		if err != nil {
			log.Printf("Read error: %v", err)
			continue
		}

		atomic.AddInt64(&packetCount, 1)
		atomic.AddInt64(&byteCount, int64(n))

		if *payload {
			fmt.Printf("%s %s\n", from, buffer[:n])
		}
	}
}

// Command telemesh-pub publishes synthetic frames on a topic, standing in
// for a camera producer when testing a deployment end to end.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"telemesh/broker"
	"telemesh/config"
	"telemesh/packet"
	"telemesh/pubsub"
	"telemesh/transport"
)

func main() {
	topic := flag.String("topic", "cameras/demo", "topic key to publish on")
	shapeName := flag.String("shape", "image_224x224x3", "packet shape name")
	hz := flag.Int("hz", 30, "publish rate")
	count := flag.Int("count", 0, "number of packets to publish (0 = forever)")
	flag.Parse()
	if *hz < 1 {
		*hz = 1
	}

	log := slog.Default()

	settings, err := config.Load()
	if err != nil {
		log.Error("loading settings failed", "error", err)
		os.Exit(1)
	}

	shape, ok := packet.Builtin().Lookup(*shapeName)
	if !ok {
		log.Error("unknown shape", "shape", *shapeName, "known", packet.Builtin().Names())
		os.Exit(1)
	}

	sup := broker.NewSupervisor(broker.Config{
		Executable: settings.BrokerExecutable,
		ConfigPath: settings.BrokerConfigPath,
		Grace:      settings.BrokerGrace,
		Settle:     settings.BrokerSettle,
	})
	log.Info("broker state", "state", sup.EnsureReady())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mesh, err := transport.NewMeshPubSub(ctx, transport.MeshOptions{
		ListenAddrs:     settings.ListenAddrs,
		Bootstrap:       settings.Bootstrap,
		Rendezvous:      settings.Rendezvous,
		EnableMDNS:      settings.EnableMDNS,
		IdentityKeyFile: settings.IdentityKey,
	})
	if err != nil {
		log.Error("opening transport failed", "error", err)
		os.Exit(1)
	}
	defer mesh.Close()
	log.Info("transport up", "peer", mesh.PeerID(), "addrs", mesh.ListenAddrs())

	pub, err := pubsub.NewPublisher(mesh, shape, *topic)
	if err != nil {
		log.Error("creating publisher failed", "error", err)
		os.Exit(1)
	}
	defer pub.Close()

	interval := time.Second / time.Duration(*hz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	published := 0
	for range ticker.C {
		pkt := shape.Zero()
		pkt.TimestampNS = uint64(time.Now().UnixNano())
		if err := pub.Write(pkt); err != nil {
			log.Warn("publish failed", "error", err)
			continue
		}
		published++
		if published%(*hz) == 0 {
			log.Info("publishing", "topic", *topic, "sent", published)
		}
		if *count > 0 && published >= *count {
			break
		}
	}
	log.Info("done", "sent", published)
}

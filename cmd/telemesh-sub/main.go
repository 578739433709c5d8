// Command telemesh-sub subscribes to a topic and reports what arrives,
// for checking a deployment end to end.
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
	topic := flag.String("topic", "cameras/demo", "topic key to subscribe to")
	shapeName := flag.String("shape", "image_224x224x3", "packet shape name")
	wait := flag.Duration("wait", 0, "give up if nothing arrives within this duration (0 = wait forever)")
	flag.Parse()

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
	log.Info("transport up", "peer", mesh.PeerID())

	sub, err := pubsub.NewSubscriber(mesh, shape, *topic)
	if err != nil {
		log.Error("creating subscriber failed", "error", err)
		os.Exit(1)
	}
	defer sub.Close()

	waitCtx := ctx
	if *wait > 0 {
		var waitCancel context.CancelFunc
		waitCtx, waitCancel = context.WithTimeout(ctx, *wait)
		defer waitCancel()
	}

	log.Info("waiting for first packet", "topic", *topic)
	first, err := sub.WaitFirst(waitCtx)
	if err != nil {
		log.Error("no packet arrived", "error", err)
		os.Exit(1)
	}
	log.Info("first packet", "timestamp_ns", first.TimestampNS, "payload_bytes", len(first.Payload))

	for {
		time.Sleep(time.Second)
		p, ok := sub.Read()
		if !ok {
			continue
		}
		age := time.Duration(uint64(time.Now().UnixNano()) - p.TimestampNS)
		log.Info("latest packet", "timestamp_ns", p.TimestampNS, "age", age)
	}
}

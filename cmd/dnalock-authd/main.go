// dnalock-authd serves the challenge protocol over gRPC.
//
// Commitments are loaded at startup from archived credentials: every
// credential file in --commit-dir is decoded, committed with the configured
// shape, and registered so clients can be challenged against it.
package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"google.golang.org/grpc"

	"dnalock.io/dnalock/challenge"
	"dnalock.io/dnalock/geometry"
	"dnalock.io/dnalock/transport/grpcauth"
	"dnalock.io/dnalock/wire"
)

func main() {
	_ = godotenv.Load()

	fs := flag.NewFlagSet("dnalock-authd", flag.ExitOnError)
	listen := fs.String("listen", "127.0.0.1:7878", "listen address")
	commitDir := fs.String("commit-dir", os.Getenv("DNALOCK_COMMIT_DIR"), "directory of credential files to register (or DNALOCK_COMMIT_DIR)")
	shapeName := fs.String("shape", "double-helix", "helix shape for registered commitments")

	_ = fs.Parse(os.Args[1:])

	var shape geometry.Shape
	switch *shapeName {
	case "double-helix":
		shape = geometry.DoubleHelix
	case "triple-helix":
		shape = geometry.TripleHelix
	case "quad-helix":
		shape = geometry.QuadHelix
	default:
		fmt.Fprintf(os.Stderr, "unknown --shape %q\n", *shapeName)
		os.Exit(2)
	}

	srv := grpcauth.NewServer(challenge.NewProtocol())

	registered := 0
	if *commitDir != "" {
		entries, err := os.ReadDir(*commitDir)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			b, err := os.ReadFile(filepath.Join(*commitDir, e.Name()))
			if err != nil {
				fmt.Fprintf(os.Stderr, "read %s: %v\n", e.Name(), err)
				os.Exit(2)
			}
			cred, err := wire.UnmarshalCredential(b)
			if err != nil {
				fmt.Fprintf(os.Stderr, "decode %s: %v\n", e.Name(), err)
				os.Exit(2)
			}
			m, err := geometry.Build(cred, shape, geometry.DefaultMaxPoints)
			if err != nil {
				fmt.Fprintf(os.Stderr, "commit %s: %v\n", e.Name(), err)
				os.Exit(2)
			}
			srv.RegisterCommitment(m)
			registered++
		}
	}

	lis, err := net.Listen("tcp", *listen)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer lis.Close()

	s := grpc.NewServer()
	grpcauth.RegisterAuthServer(s, srv)

	fmt.Fprintf(os.Stderr, "dnalock-authd listening on %s (commitments=%d shape=%s)\n", lis.Addr().String(), registered, shape)
	if err := s.Serve(lis); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

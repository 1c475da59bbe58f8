package main

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/joho/godotenv"

	"dnalock.io/dnalock/challenge"
	"dnalock.io/dnalock/credential"
	"dnalock.io/dnalock/geometry"
	"dnalock.io/dnalock/keys"
	"dnalock.io/dnalock/revocation"
	"dnalock.io/dnalock/revocation/gormstore"
	"dnalock.io/dnalock/storage/credstore"
	"dnalock.io/dnalock/storage/localfs"
	"dnalock.io/dnalock/verify"
	"dnalock.io/dnalock/wire"
)

func main() {
	// Local overrides for DNALOCK_* variables; absence is not an error.
	_ = godotenv.Load()
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		printUsage(errOut)
		return 2
	}

	switch args[0] {
	case "generate":
		return cmdGenerate(args[1:], out, errOut)
	case "verify":
		return cmdVerify(args[1:], out, errOut)
	case "commit":
		return cmdCommit(args[1:], out, errOut)
	case "challenge":
		return cmdChallenge(args[1:], out, errOut)
	case "revoke":
		return cmdRevoke(args[1:], out, errOut)
	case "crl":
		return cmdCRL(args[1:], out, errOut)
	case "key":
		return cmdKey(args[1:], out, errOut)
	case "help", "-h", "--help":
		printUsage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown command: %s\n\n", args[0])
		printUsage(errOut)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "dnalock: credential generation, verification and challenge CLI")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  dnalock generate --subject <id> [--level standard|elevated|high|critical|maximum] [--policy-id <id>] [--days <n>] [--org <id>] (--seed-hex <64hex> | --key-file <path>) [--out <file>] [--store <dir>]")
	fmt.Fprintln(w, "  dnalock verify <file> [--strict] [--signatures] [--crl <db>]")
	fmt.Fprintln(w, "  dnalock commit <file> [--shape double-helix|triple-helix|quad-helix] [--max-points <n>]")
	fmt.Fprintln(w, "  dnalock challenge <file> [--shape ...]")
	fmt.Fprintln(w, "  dnalock revoke --db <path> --id <credential-id> [--reason <r>] [--by <who>] [--notes <text>]")
	fmt.Fprintln(w, "  dnalock crl --db <path>")
	fmt.Fprintln(w, "  dnalock key init --name <name> [--seed-hex <64hex>] [--force]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Notes:")
	fmt.Fprintln(w, "  - --seed-hex must be 32 bytes (64 hex chars) ed25519 seed")
	fmt.Fprintln(w, "  - keys live under $DNALOCK_HOME/keys (default ~/.dnalock/keys, 0600 seed files)")
	fmt.Fprintln(w, "  - --store archives canonical credential bytes content-addressed and prints the CID")
	fmt.Fprintln(w, "  - challenge runs a local prove/verify round against the file's commitment")
	fmt.Fprintln(w, "  - a .env file in the working directory may set DNALOCK_* variables")
}

func keysDir() (string, error) {
	if home := os.Getenv("DNALOCK_HOME"); home != "" {
		return filepath.Join(home, "keys"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".dnalock", "keys"), nil
}

func loadSeed(seedHex, keyFile string) ([]byte, error) {
	switch {
	case seedHex != "" && keyFile != "":
		return nil, fmt.Errorf("conflicting signer flags: --seed-hex cannot be combined with --key-file")
	case seedHex != "":
		return parseSeedHex(seedHex)
	case keyFile != "":
		b, err := os.ReadFile(keyFile)
		if err != nil {
			return nil, err
		}
		return parseSeedHex(strings.TrimSpace(string(b)))
	default:
		return nil, fmt.Errorf("missing signer: use --seed-hex or --key-file")
	}
}

func parseSeedHex(s string) ([]byte, error) {
	seed, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("seed is not hex: %v", err)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	return seed, nil
}

func cmdGenerate(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var subject string
	var level string
	var policyID string
	var policyVersion uint
	var days int
	var org string
	var seedHex string
	var keyFile string
	var outPath string
	var storeDir string

	fs.StringVar(&subject, "subject", "", "Subject identifier (hashed into the credential, never stored raw)")
	fs.StringVar(&level, "level", string(credential.LevelStandard), "Security level")
	fs.StringVar(&policyID, "policy-id", "policy-default", "Policy identifier")
	fs.UintVar(&policyVersion, "policy-version", 1, "Policy version")
	fs.IntVar(&days, "days", 365, "Validity period in days")
	fs.StringVar(&org, "org", os.Getenv("DNALOCK_ORG"), "Issuer organization id (or DNALOCK_ORG)")
	fs.StringVar(&seedHex, "seed-hex", "", "ed25519 seed as 64 hex chars")
	fs.StringVar(&keyFile, "key-file", "", "Path to a seed file created by 'dnalock key init'")
	fs.StringVar(&outPath, "out", "", "Write canonical credential bytes to this file (default stdout)")
	fs.StringVar(&storeDir, "store", os.Getenv("DNALOCK_STORE"), "Archive directory (or DNALOCK_STORE); empty skips archiving")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if subject == "" {
		fmt.Fprintln(errOut, "missing --subject")
		return 2
	}
	if org == "" {
		fmt.Fprintln(errOut, "missing --org (or set DNALOCK_ORG)")
		return 2
	}

	seed, err := loadSeed(seedHex, keyFile)
	if err != nil {
		fmt.Fprintf(errOut, "invalid signer: %v\n", err)
		return 2
	}
	signer, err := keys.NewEd25519SignerFromSeed(seed)
	if err != nil {
		fmt.Fprintf(errOut, "signer: %v\n", err)
		return 2
	}

	g := credential.NewGenerator(signer, org)
	cred, err := g.Generate(subject, credential.SecurityLevel(level), credential.PolicyBinding{PolicyID: policyID, Version: uint32(policyVersion)}, days)
	if err != nil {
		fmt.Fprintf(errOut, "generate: %v\n", err)
		if credential.IsKind(err, credential.KindValidation) {
			return 2
		}
		return 1
	}

	b, err := wire.MarshalCredential(cred)
	if err != nil {
		fmt.Fprintf(errOut, "encode: %v\n", err)
		return 1
	}

	fmt.Fprintf(errOut, "Credential-ID: %s\n", cred.ID)
	fmt.Fprintf(errOut, "Segments: %d  Score: %.1f\n", len(cred.Segments), cred.SecurityScore)

	if storeDir != "" {
		cas, err := localfs.New(storeDir)
		if err != nil {
			fmt.Fprintf(errOut, "store: %v\n", err)
			return 1
		}
		id, err := credstore.New(cas).Put(cred)
		if err != nil {
			fmt.Fprintf(errOut, "archive: %v\n", err)
			return 1
		}
		fmt.Fprintf(errOut, "Archived-CID: %s\n", id)
	}

	if outPath != "" {
		if err := os.WriteFile(outPath, b, 0o644); err != nil {
			fmt.Fprintf(errOut, "write %s: %v\n", outPath, err)
			return 1
		}
		return 0
	}
	_, _ = out.Write(b)
	return 0
}

func readCredential(path string, errOut io.Writer) (*credential.Credential, int) {
	b, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(errOut, "read %s: %v\n", filepath.Base(path), err)
		return nil, 1
	}
	cred, err := wire.UnmarshalCredential(b)
	if err != nil {
		fmt.Fprintf(errOut, "decode credential: %v\n", err)
		return nil, 1
	}
	return cred, 0
}

func cmdVerify(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var strict bool
	var signatures bool
	var crlPath string

	fs.BoolVar(&strict, "strict", false, "Treat warnings as a non-passing outcome")
	fs.BoolVar(&signatures, "signatures", true, "Cryptographically verify the issuer signature")
	fs.StringVar(&crlPath, "crl", os.Getenv("DNALOCK_CRL"), "Revocation database path (or DNALOCK_CRL)")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: dnalock verify <file> [--strict] [--signatures] [--crl <db>]")
		return 2
	}

	cred, code := readCredential(fs.Arg(0), errOut)
	if code != 0 {
		return code
	}

	v := &verify.Verifier{Strict: strict, VerifySignatures: signatures}
	if crlPath != "" {
		store, err := gormstore.Open(crlPath)
		if err != nil {
			fmt.Fprintf(errOut, "open crl: %v\n", err)
			return 1
		}
		reg, err := store.NewRegistry(context.Background())
		if err != nil {
			fmt.Fprintf(errOut, "load crl: %v\n", err)
			return 1
		}
		v.Revocations = reg
	}

	report := v.Verify(cred)
	for _, c := range report.Checks {
		switch c.Status {
		case verify.Passed:
			fmt.Fprintf(out, "%s %s\n", color.GreenString("PASS"), c.Name)
		case verify.Warning:
			fmt.Fprintf(out, "%s %s: %s\n", color.YellowString("WARN"), c.Name, c.Detail)
		case verify.Failed:
			fmt.Fprintf(out, "%s %s: %s\n", color.RedString("FAIL"), c.Name, c.Detail)
		}
	}
	fmt.Fprintln(out)
	if report.Ok() {
		fmt.Fprintf(out, "%s %s\n", color.GreenString("VERIFIED"), cred.ID)
		return 0
	}
	fmt.Fprintf(out, "%s %s (%s)\n", color.RedString("REJECTED"), cred.ID, report.Reason())
	return 1
}

func parseShape(s string) (geometry.Shape, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "double-helix":
		return geometry.DoubleHelix, nil
	case "triple-helix":
		return geometry.TripleHelix, nil
	case "quad-helix":
		return geometry.QuadHelix, nil
	default:
		return "", fmt.Errorf("unknown shape %q (expected double-helix, triple-helix or quad-helix)", s)
	}
}

func cmdCommit(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("commit", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var shapeName string
	var maxPoints int

	fs.StringVar(&shapeName, "shape", "double-helix", "Helix shape")
	fs.IntVar(&maxPoints, "max-points", 0, "Point budget (0 uses the default)")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: dnalock commit <file> [--shape ...] [--max-points <n>]")
		return 2
	}
	shape, err := parseShape(shapeName)
	if err != nil {
		fmt.Fprintf(errOut, "invalid --shape: %v\n", err)
		return 2
	}

	cred, code := readCredential(fs.Arg(0), errOut)
	if code != 0 {
		return code
	}

	m, err := geometry.Build(cred, shape, maxPoints)
	if err != nil {
		fmt.Fprintf(errOut, "commit: %v\n", err)
		return 1
	}
	fmt.Fprintf(out, "Model-ID: %s\n", m.ModelID)
	fmt.Fprintf(out, "Shape: %s  Points: %d  Edges: %d\n", m.Shape, len(m.Points), len(m.Edges))
	fmt.Fprintf(out, "Model-Checksum: %s\n", hex.EncodeToString(m.ModelChecksum))
	return 0
}

func cmdChallenge(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("challenge", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var shapeName string

	fs.StringVar(&shapeName, "shape", "double-helix", "Helix shape")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: dnalock challenge <file> [--shape ...]")
		return 2
	}
	shape, err := parseShape(shapeName)
	if err != nil {
		fmt.Fprintf(errOut, "invalid --shape: %v\n", err)
		return 2
	}

	cred, code := readCredential(fs.Arg(0), errOut)
	if code != 0 {
		return code
	}
	m, err := geometry.Build(cred, shape, geometry.DefaultMaxPoints)
	if err != nil {
		fmt.Fprintf(errOut, "commit: %v\n", err)
		return 1
	}

	p := challenge.NewProtocol()
	ch, err := p.IssueChallenge(m)
	if err != nil {
		fmt.Fprintf(errOut, "issue challenge: %v\n", err)
		return 1
	}
	fmt.Fprintf(out, "Challenge-ID: %s\n", ch.ChallengeID)
	fmt.Fprintf(out, "Points: %d  Edges: %d  Expires: %s\n", len(ch.RequestedPointIndices), len(ch.RequestedEdgeIndices), ch.ExpiresAt.UTC().Format("15:04:05"))

	res, err := p.VerifyResponse(ch.ChallengeID, challenge.BuildResponse(m, ch))
	if err != nil {
		fmt.Fprintf(errOut, "verify response: %v\n", err)
		return 1
	}
	if !res.Verified {
		fmt.Fprintf(out, "%s %s\n", color.RedString("REJECTED"), res.Reason)
		return 1
	}
	fmt.Fprintf(out, "%s %s\n", color.GreenString("VERIFIED"), res.Reason)
	return 0
}

func cmdRevoke(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("revoke", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var dbPath string
	var id string
	var reason string
	var by string
	var notes string

	fs.StringVar(&dbPath, "db", os.Getenv("DNALOCK_CRL"), "Revocation database path (or DNALOCK_CRL)")
	fs.StringVar(&id, "id", "", "Credential id to revoke")
	fs.StringVar(&reason, "reason", string(revocation.ReasonUnspecified), "Revocation reason")
	fs.StringVar(&by, "by", "", "Operator identity recorded on the entry")
	fs.StringVar(&notes, "notes", "", "Free-form note")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if dbPath == "" {
		fmt.Fprintln(errOut, "missing --db (or set DNALOCK_CRL)")
		return 2
	}
	if id == "" {
		fmt.Fprintln(errOut, "missing --id")
		return 2
	}

	ctx := context.Background()
	store, err := gormstore.Open(dbPath)
	if err != nil {
		fmt.Fprintf(errOut, "open crl: %v\n", err)
		return 1
	}
	reg, err := store.NewRegistry(ctx)
	if err != nil {
		fmt.Fprintf(errOut, "load crl: %v\n", err)
		return 1
	}

	entry, err := reg.Revoke(id, revocation.Reason(reason), by, notes)
	if err != nil {
		if revocation.IsAlreadyRevoked(err) {
			fmt.Fprintf(errOut, "%s is already revoked\n", id)
			return 1
		}
		fmt.Fprintf(errOut, "revoke: %v\n", err)
		return 1
	}
	if err := store.Append(ctx, entry); err != nil {
		fmt.Fprintf(errOut, "journal: %v\n", err)
		return 1
	}
	fmt.Fprintf(out, "%s %s (%s)\n", color.RedString("REVOKED"), id, entry.Reason)
	fmt.Fprintf(out, "Registry-Version: %d\n", reg.Version())
	return 0
}

func cmdCRL(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("crl", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var dbPath string

	fs.StringVar(&dbPath, "db", os.Getenv("DNALOCK_CRL"), "Revocation database path (or DNALOCK_CRL)")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if dbPath == "" {
		fmt.Fprintln(errOut, "missing --db (or set DNALOCK_CRL)")
		return 2
	}

	store, err := gormstore.Open(dbPath)
	if err != nil {
		fmt.Fprintf(errOut, "open crl: %v\n", err)
		return 1
	}
	reg, err := store.NewRegistry(context.Background())
	if err != nil {
		fmt.Fprintf(errOut, "load crl: %v\n", err)
		return 1
	}

	list := reg.List()
	fmt.Fprintf(out, "Version: %d\n", list.Version)
	fmt.Fprintf(out, "CRL-Hash: %s\n", hex.EncodeToString(list.CRLHash))
	for _, e := range list.Entries {
		fmt.Fprintf(out, "%s  %s  %s  %s\n", e.CredentialID, e.RevokedAt.UTC().Format("2006-01-02T15:04:05Z"), e.Reason, e.RevokedBy)
	}
	return 0
}

func cmdKey(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(errOut, "usage: dnalock key init --name <name> [--seed-hex <64hex>] [--force]")
		return 2
	}
	switch args[0] {
	case "init":
		return cmdKeyInit(args[1:], out, errOut)
	default:
		fmt.Fprintf(errOut, "unknown key subcommand: %s\n", args[0])
		return 2
	}
}

func cmdKeyInit(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("key init", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var name string
	var seedHex string
	var force bool

	fs.StringVar(&name, "name", "", "Key name (file under the keys directory)")
	fs.StringVar(&seedHex, "seed-hex", "", "Optional ed25519 seed as 64 hex chars (for reproducible demos)")
	fs.BoolVar(&force, "force", false, "Overwrite an existing key file")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if name == "" {
		fmt.Fprintln(errOut, "missing --name")
		return 2
	}
	if strings.ContainsAny(name, "/\\") || name == "." || name == ".." {
		fmt.Fprintln(errOut, "invalid --name: must be a bare file name")
		return 2
	}

	var seed []byte
	if seedHex != "" {
		var err error
		seed, err = parseSeedHex(seedHex)
		if err != nil {
			fmt.Fprintf(errOut, "invalid --seed-hex: %v\n", err)
			return 2
		}
	} else {
		seed = make([]byte, ed25519.SeedSize)
		if _, err := rand.Read(seed); err != nil {
			fmt.Fprintf(errOut, "rand: %v\n", err)
			return 1
		}
	}

	dir, err := keysDir()
	if err != nil {
		fmt.Fprintf(errOut, "keys dir: %v\n", err)
		return 1
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		fmt.Fprintf(errOut, "keys dir: %v\n", err)
		return 1
	}
	path := filepath.Join(dir, name+".seed")
	if !force {
		if _, err := os.Stat(path); err == nil {
			fmt.Fprintf(errOut, "key %s already exists (use --force to overwrite)\n", name)
			return 1
		}
	}
	if err := os.WriteFile(path, []byte(hex.EncodeToString(seed)+"\n"), 0o600); err != nil {
		fmt.Fprintf(errOut, "write key: %v\n", err)
		return 1
	}

	signer, err := keys.NewEd25519SignerFromSeed(seed)
	if err != nil {
		fmt.Fprintf(errOut, "signer: %v\n", err)
		return 1
	}
	fmt.Fprintf(out, "Created key: %s\n", hex.EncodeToString(signer.PublicKey()))
	fmt.Fprintf(out, "Stored at: %s\n", path)
	return 0
}

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/alexflint/go-arg"
	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"

	s3st "github.com/s3batch/s3batch/storage/s3"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

type uploadCmd struct {
	Dir           string `arg:"positional,required" help:"Local directory to upload"`
	Prefix        string `arg:"--prefix,env:R2_PREFIX" help:"Destination prefix prepended to every intended key"`
	DedupBasename bool   `arg:"--dedup-basename" help:"Skip files whose basename exists anywhere in the bucket. Same-named files with different content are silently skipped; without this flag dedup compares full keys"`
}

type deleteCmd struct {
	Folder       string   `arg:"--folder" help:"Target folder path (recursive), e.g. 'markdown/legacy'"`
	Extensions   []string `arg:"--ext,separate" help:"Delete files with given extension, e.g. '.tmp'"`
	Patterns     []string `arg:"--pattern,separate" help:"Delete files matching pattern. Supports '*' (any run) and '?' (one character)"`
	Exclude      []string `arg:"--exclude,separate" help:"Never touch keys under these prefixes"`
	DeleteBucket bool     `arg:"--delete-bucket" help:"Delete the bucket itself (must be empty)"`
}

type moveCmd struct {
	Pairs []string `arg:"positional" help:"Source and destination prefix pairs: SRC DST [SRC DST ...]. Falls back to MOVE_SOURCE_n/MOVE_DEST_n env pairs"`
}

type organizeCmd struct {
	Base   string   `arg:"--base,required" help:"Prefix to organize, e.g. 'markdown/'"`
	Legacy string   `arg:"--legacy,required" help:"Destination prefix for moved keys, e.g. 'markdown/legacy/'"`
	Keep   []string `arg:"--keep,separate" help:"Prefixes to leave in place. The legacy prefix is always kept"`
}

type migrateCmd struct {
	TargetBucket string `arg:"--target-bucket,required" help:"Destination bucket name"`
	Prefix       string `arg:"--prefix" help:"Only migrate keys under this prefix"`
	DeleteSource bool   `arg:"--delete-source" help:"Delete source objects after successful copy (move semantics)"`
}

type args struct {
	Upload   *uploadCmd   `arg:"subcommand:upload" help:"Upload a local tree, skipping files already present remotely"`
	Delete   *deleteCmd   `arg:"subcommand:delete" help:"Delete objects matching criteria, or the bucket itself"`
	Move     *moveCmd     `arg:"subcommand:move" help:"Move prefixes inside the bucket"`
	Organize *organizeCmd `arg:"subcommand:organize" help:"Move everything under a prefix to a legacy prefix, except keep-list entries"`
	Migrate  *migrateCmd  `arg:"subcommand:migrate" help:"Server-side copy of the bucket contents into another bucket"`

	// Store config
	Bucket    string `arg:"--bucket,env:R2_BUCKET" help:"Bucket name"`
	AccessKey string `arg:"--ak,env:R2_ACCESS_KEY_ID" help:"Access key"`
	SecretKey string `arg:"--sk,env:R2_SECRET_ACCESS_KEY" help:"Secret key"`
	AccountID string `arg:"--account-id,env:R2_ACCOUNT_ID" help:"Cloudflare R2 account ID, used to derive the endpoint when --endpoint is not given"`
	Endpoint  string `arg:"--endpoint,env:R2_ENDPOINT" help:"S3 endpoint URL"`
	Region    string `arg:"--region,env:R2_REGION" help:"Region"`

	// S3 config
	S3Retry         uint  `arg:"--s3-retry" help:"Max numbers of retries for one store call"`
	S3RetryInterval uint  `arg:"--s3-retry-sleep" help:"Sleep interval (sec) between retries on error"`
	S3KeysPerReq    int64 `arg:"--s3-keys-per-req" help:"Max numbers of keys retrieved via List request"`

	// Misc
	Workers            uint `arg:"-w" help:"Workers count for per-object operations"`
	DryRun             bool `arg:"--dry-run" help:"Preview only, perform no mutating calls"`
	ShowAll            bool `arg:"--show-all" help:"Show the full plan in the preview"`
	Debug              bool `arg:"-d" help:"Show debug logging"`
	ShowProgress       bool `arg:"--progress,-p" help:"Show live progress"`
	RateLimitObjPerSec uint `arg:"--ratelimit-objects" help:"Rate limit objects per second"`
	RateLimitBandwidth int  `arg:"--ratelimit-bandwidth" help:"Set bandwidth rate limit (bytes/sec) for upload content reads"`
	ListBuffer         uint `arg:"--list-buffer" help:"Size of the scan list buffer"`
}

type movePair struct {
	Source      string
	Destination string
}

type argsParsed struct {
	args
	S3RetryInterval time.Duration
	MovePairs       []movePair
}

// Version return program version string on human format.
func (args) Version() string {
	return fmt.Sprintf("Version: %v, commit: %v, built at: %v", version, commit, date)
}

// Description return program description string.
func (args) Description() string {
	return "Bulk mutation tool for S3-compatible buckets"
}

// GetCliArgs return cli args structure and error.
func GetCliArgs() (cli argsParsed, err error) {
	// .env first, so its values become go-arg env defaults.
	_ = godotenv.Load()

	rawCli := args{}
	rawCli.Region = "auto"
	rawCli.Workers = 16
	rawCli.S3Retry = 0
	rawCli.S3RetryInterval = 0
	rawCli.S3KeysPerReq = 1000
	rawCli.ListBuffer = 1000

	p := arg.MustParse(&rawCli)
	cli.args = rawCli
	cli.S3RetryInterval = time.Duration(cli.args.S3RetryInterval) * time.Second

	if p.Subcommand() == nil {
		p.Fail("a subcommand is required: upload, delete, move, organize or migrate")
	}

	if cli.Bucket == "" {
		p.Fail("a bucket is required (--bucket or R2_BUCKET)")
	}

	if cli.Endpoint == "" && cli.AccountID != "" {
		cli.Endpoint = s3st.R2Endpoint(cli.AccountID)
	}

	if cli.ShowProgress && !isatty.IsTerminal(os.Stdout.Fd()) {
		p.Fail("Progress (--progress) require tty")
	}

	if cli.Delete != nil && !cli.Delete.DeleteBucket {
		if cli.Delete.Folder == "" && len(cli.Delete.Extensions) == 0 && len(cli.Delete.Patterns) == 0 {
			p.Fail("delete needs a target: --folder, --ext or --pattern (or --delete-bucket)")
		}
	}

	if cli.Move != nil {
		if cli.MovePairs, err = parseMovePairs(cli.Move.Pairs); err != nil {
			p.Fail(err.Error())
		}
		if len(cli.MovePairs) == 0 {
			p.Fail("move needs SRC DST pairs as arguments or MOVE_SOURCE_n/MOVE_DEST_n env pairs")
		}
	}

	return
}

// parseMovePairs reads SRC DST pairs from positional args, falling back to
// the MOVE_SOURCE_n/MOVE_DEST_n env convention.
func parseMovePairs(positional []string) ([]movePair, error) {
	if len(positional) > 0 {
		if len(positional)%2 != 0 {
			return nil, fmt.Errorf("move pairs must come in SRC DST pairs, got %d arguments", len(positional))
		}
		pairs := make([]movePair, 0, len(positional)/2)
		for i := 0; i < len(positional); i += 2 {
			pairs = append(pairs, movePair{Source: positional[i], Destination: positional[i+1]})
		}
		return pairs, nil
	}

	var pairs []movePair
	for i := 1; ; i++ {
		source := os.Getenv(fmt.Sprintf("MOVE_SOURCE_%d", i))
		destination := os.Getenv(fmt.Sprintf("MOVE_DEST_%d", i))
		if source == "" || destination == "" {
			break
		}
		pairs = append(pairs, movePair{Source: source, Destination: destination})
	}
	return pairs, nil
}

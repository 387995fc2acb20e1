package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"time"

	"github.com/matst80/killu-finder/pkg/config"
	"github.com/matst80/killu-finder/pkg/logger"
	"github.com/matst80/killu-finder/pkg/storage"
	"github.com/matst80/killu-finder/pkg/types"
	"go.uber.org/zap"
)

var (
	csvFile = flag.String("csv", "", "semicolon separated phone catalogue")
	fake    = flag.Int("fake", 0, "generate this many synthetic phones instead of reading a csv")
	seed    = flag.Uint64("seed", 0, "seed for -fake, 0 uses the current time")
	out     = flag.String("out", "", "write a local json catalogue instead of Firestore")
	envFile = flag.String("env", ".env", "optional env file")
)

func loadPhones() []types.PhoneRecord {
	if *fake > 0 {
		s := *seed
		if s == 0 {
			s = uint64(time.Now().UnixNano())
		}
		return fakePhones(*fake, s)
	}
	if *csvFile == "" {
		logger.Log.Fatal("either -csv or -fake is required")
	}
	f, err := os.Open(*csvFile)
	if err != nil {
		logger.Log.Fatal("unable to read input file", zap.String("file", *csvFile), zap.Error(err))
	}
	defer f.Close()
	rows, err := readCsv(f)
	if err != nil {
		logger.Log.Fatal("unable to parse csv", zap.String("file", *csvFile), zap.Error(err))
	}
	phones, errs := phonesFromRows(rows)
	for _, err := range errs {
		logger.Log.Warn("skipping row", zap.Error(err))
	}
	return phones
}

func main() {
	flag.Parse()
	cfg, err := config.Load(*envFile)
	if err != nil {
		panic(err)
	}
	if err = logger.Initialize(cfg.LogLevel, cfg.LogFile); err != nil {
		panic(err)
	}
	defer logger.Close()

	phones := loadPhones()
	logger.Log.Info("loaded phones", zap.Int("count", len(phones)))

	target := *out
	if target == "" && !cfg.UseFirebase() {
		target = cfg.PhonesFile
	}
	if target != "" {
		disk := storage.NewDiskStorage(filepath.Dir(target))
		if err = disk.SaveJson(documents(phones), filepath.Base(target)); err != nil {
			logger.Log.Fatal("failed to write catalogue", zap.String("file", target), zap.Error(err))
		}
		logger.Log.Info("wrote local catalogue", zap.String("file", target))
		return
	}

	ctx := context.Background()
	app, err := storage.NewFirebaseApp(ctx, cfg.ProjectId, cfg.CredentialsFile)
	if err != nil {
		logger.Log.Fatal("failed to initialize firebase", zap.Error(err))
	}
	client, err := app.Firestore(ctx)
	if err != nil {
		logger.Log.Fatal("failed to connect to firestore", zap.Error(err))
	}
	defer client.Close()
	if err = storage.NewFirestorePhoneStore(client).Upsert(ctx, phones...); err != nil {
		logger.Log.Fatal("failed to upsert phones", zap.Error(err))
	}
	logger.Log.Info("imported phones", zap.String("collection", storage.PhoneCollection), zap.Int("count", len(phones)))
}

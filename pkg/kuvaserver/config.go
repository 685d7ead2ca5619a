package kuvaserver

import (
	"fmt"
	"log"

	"github.com/function61/gokit/jsonfile"
	"github.com/function61/gokit/logex"
	"github.com/function61/kuvasto/pkg/thumbcache"
	"github.com/function61/kuvasto/pkg/thumbnailer"
	"github.com/function61/kuvasto/pkg/thumbstorage"
	"github.com/function61/kuvasto/pkg/thumbstorage/localfs"
	"github.com/function61/kuvasto/pkg/thumbstorage/s3"
)

const configFilename = "kuvasto-config.json"

type ServerConfigFile struct {
	DbLocation    string `json:"db_location"`
	StorageRoot   string `json:"storage_root"` // local filesystem storage root
	BaseURL       string `json:"base_url"`     // public URL prefix for local storage
	S3            string `json:"s3"`           // "bucket:region:accessKeyId:secret". overrides storage_root when set
	ThumbSubdir   string `json:"thumb_subdir"` // default "thumbs"
	Debug         bool   `json:"debug"`
	ListenAddr    string `json:"listen_addr"`    // default ":8688"
	SweepSchedule string `json:"sweep_schedule"` // cron spec for stale-record sweep. empty = disabled
}

func ReadConfigFile() (*ServerConfigFile, error) {
	scf := &ServerConfigFile{}
	if err := jsonfile.Read(configFilename, scf, true); err != nil {
		return nil, fmt.Errorf("readConfigFile: %w", err)
	}

	if scf.ListenAddr == "" {
		scf.ListenAddr = ":8688"
	}

	return scf, nil
}

// wires storage + cache + thumbnailer the same way for the server and the CLI
// commands. caller must invoke the returned release fn (closes the database).
func BuildStack(scf *ServerConfigFile, logger *log.Logger) (*thumbnailer.Thumbnailer, *thumbcache.Store, func(), error) {
	var storage thumbstorage.Storage
	if scf.S3 != "" {
		s3Storage, err := s3.New(scf.S3, logex.Prefix("s3", logger))
		if err != nil {
			return nil, nil, nil, err
		}

		storage = s3Storage
	} else {
		storage = localfs.New(scf.StorageRoot, scf.BaseURL, logex.Prefix("localfs", logger))
	}

	db, err := thumbcache.OpenDatabase(scf.DbLocation)
	if err != nil {
		return nil, nil, nil, err
	}

	cache, err := thumbcache.New(db, storage, scf.Debug, logex.Prefix("thumbcache", logger))
	if err != nil {
		_ = db.Close()
		return nil, nil, nil, err
	}

	thumber := thumbnailer.New(thumbnailer.Config{
		Subdir: scf.ThumbSubdir,
		Debug:  scf.Debug,
	}, storage, cache, logex.Prefix("thumbnailer", logger))

	return thumber, cache, func() { _ = db.Close() }, nil
}

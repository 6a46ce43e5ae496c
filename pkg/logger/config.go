package logger

import (
	"io"
	"log/slog"
)

type Backend string

const (
	BackendStd Backend = "std" // text в dev, JSON в stage/prod
	BackendZap Backend = "zap"
)

type Config struct {
	Service    string
	Version    string
	InstanceID string

	Level   slog.Level
	Env     Env
	Backend Backend // по умолчанию: std для dev, zap для stage/prod
	Debug   bool

	// Zap sampling; <= 0: значения по умолчанию
	SampleInitial    int
	SampleThereafter int

	AddSource bool

	// Out: куда писать; nil означает os.Stdout
	Out io.Writer
}

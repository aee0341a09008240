package config

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestRegisterFlagsDefaults(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	v := viper.New()
	RegisterFlags(fs, v)

	require.NoError(t, fs.Parse(nil))

	cfg, err := Load(v, "")
	require.NoError(t, err)
	require.Equal(t, uint32(65536), cfg.TotalBlocks)
	require.Equal(t, uint32(200), cfg.InodeCount)
	require.Equal(t, "text", cfg.LogFormat)
	require.Equal(t, "INFO", cfg.LogSeverity)
}

func TestRegisterFlagsOverride(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	v := viper.New()
	RegisterFlags(fs, v)

	require.NoError(t, fs.Parse([]string{"--image", "disk.img", "--total-blocks", "4096"}))

	cfg, err := Load(v, "")
	require.NoError(t, err)
	require.Equal(t, "disk.img", cfg.Image)
	require.Equal(t, uint32(4096), cfg.TotalBlocks)
}

func TestRegisterFlagsEnvOverride(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	v := viper.New()
	RegisterFlags(fs, v)
	require.NoError(t, fs.Parse(nil))

	t.Setenv("UNIXFS_IMAGE", "env.img")

	cfg, err := Load(v, "")
	require.NoError(t, err)
	require.Equal(t, "env.img", cfg.Image)
}

package util

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/ValentinKolb/dCommerce/lib/doc"
	"github.com/ValentinKolb/dCommerce/lib/store"
	"github.com/ValentinKolb/dCommerce/rpc/client"
	"github.com/ValentinKolb/dCommerce/rpc/common"
	"github.com/ValentinKolb/dCommerce/rpc/serializer"
	"github.com/ValentinKolb/dCommerce/rpc/transport"
	"github.com/ValentinKolb/dCommerce/rpc/transport/http"
	"github.com/ValentinKolb/dCommerce/rpc/transport/tcp"
	"github.com/ValentinKolb/dCommerce/rpc/transport/unix"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	// Wrap is the width flag help texts are wrapped at
	Wrap int = 50

	// EnvPrefix is the prefix of all environment variables (DCOMMERCE_<FLAG>)
	EnvPrefix = "dcommerce"
)

// WrapString breaks text into lines of at most Wrap characters (longer words get a line of their own)
func WrapString(text string) string {
	var sb strings.Builder
	col := 0
	for _, word := range strings.Fields(text) {
		switch {
		case col == 0:
		case col+1+len(word) > Wrap:
			sb.WriteByte('\n')
			col = 0
		default:
			sb.WriteByte(' ')
			col++
		}
		sb.WriteString(word)
		col += len(word)
	}
	return sb.String()
}

// --------------------------------------------------------------------------
// Configuration
// --------------------------------------------------------------------------

// InitConfig loads .env and .env.local (if present) and makes viper read DCOMMERCE_* variables
func InitConfig() {
	for _, file := range []string{".env", ".env.local"} {
		_ = godotenv.Load(file)
	}
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// SetupRPCClientFlags adds the flags needed to connect to a server to cmd
func SetupRPCClientFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()

	key := "timeout"
	flags.Int(key, 10, WrapString("Seconds to wait for a response"))

	key = "shard"
	flags.Int(key, 100, WrapString("Shard the commands operate on"))

	key = "transport-endpoints"
	flags.String(key, "localhost:8080", WrapString("Server address, several comma separated addresses are used round robin"))

	key = "transport-conn-per-endpoint"
	flags.Int(key, 1, WrapString("Connections opened per endpoint (tcp, unix)"))

	key = "transport-retries"
	flags.Int(key, 3, WrapString("Attempts per request before giving up"))

	key = "transport-write-buffer"
	flags.Int(key, 512, WrapString("Socket write buffer in KB (tcp)"))

	key = "transport-read-buffer"
	flags.Int(key, 512, WrapString("Socket read buffer in KB (tcp)"))

	key = "transport-tcp-nodelay"
	flags.Bool(key, true, WrapString("Disable Nagle's algorithm (tcp)"))

	key = "transport-tcp-keepalive"
	flags.Int(key, 0, WrapString("Keep alive idle time in seconds, 0 disables it (tcp)"))

	key = "transport-tcp-linger"
	flags.Int(key, 0, WrapString("Linger time in seconds, 0 keeps the os default (tcp)"))
}

// GetClientConfig assembles the client config from the bound flags and environment
func GetClientConfig() *common.ClientConfig {
	var endpoints []string
	for _, e := range strings.Split(viper.GetString("transport-endpoints"), ",") {
		if e = strings.TrimSpace(e); e != "" {
			endpoints = append(endpoints, e)
		}
	}

	return &common.ClientConfig{
		TimeoutSecond: viper.GetInt("timeout"),
		Transport: common.ClientTransportConfig{
			Endpoints:              endpoints,
			RetryCount:             viper.GetInt("transport-retries"),
			ConnectionsPerEndpoint: viper.GetInt("transport-conn-per-endpoint"),
			TCPConf: common.TCPConf{
				TCPNoDelay:      viper.GetBool("transport-tcp-nodelay"),
				TCPKeepAliveSec: viper.GetInt("transport-tcp-keepalive"),
				TCPLingerSec:    viper.GetInt("transport-tcp-linger"),
				WriteBufferSize: viper.GetInt("transport-write-buffer") * 1024,
				ReadBufferSize:  viper.GetInt("transport-read-buffer") * 1024,
			},
		},
	}
}

var serializers = map[string]func() serializer.IRPCSerializer{
	"binary": serializer.NewBinarySerializer,
	"json":   serializer.NewJSONSerializer,
	"gob":    serializer.NewGOBSerializer,
}

var clientTransports = map[string]func() transport.IRPCClientTransport{
	"http": http.NewHttpClientTransport,
	"tcp":  tcp.NewTCPClientTransport,
	"unix": unix.NewUnixClientTransport,
}

var serverTransports = map[string]func() transport.IRPCServerTransport{
	"http": http.NewHttpServerTransport,
	"tcp":  tcp.NewTCPDefaultServerTransport,
	"unix": unix.NewUnixDefaultServerTransport,
}

// GetSerializer returns the serializer selected with --serializer
func GetSerializer() (serializer.IRPCSerializer, error) {
	return pick(serializers, "serializer")
}

// GetTransport returns the client transport selected with --transport
func GetTransport() (transport.IRPCClientTransport, error) {
	return pick(clientTransports, "transport")
}

// GetServerTransport returns the server transport selected with --transport
func GetServerTransport() (transport.IRPCServerTransport, error) {
	return pick(serverTransports, "transport")
}

func pick[T any](factories map[string]func() T, key string) (T, error) {
	name := viper.GetString(key)
	factory, ok := factories[name]
	if !ok {
		var zero T
		names := make([]string, 0, len(factories))
		for n := range factories {
			names = append(names, n)
		}
		slices.Sort(names)
		return zero, fmt.Errorf("invalid %s %q (expected one of: %s)", key, name, strings.Join(names, ", "))
	}
	return factory(), nil
}

// GetShardID retrieves the configured shard ID
func GetShardID() uint64 {
	return uint64(viper.GetInt("shard"))
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

// NewStoreClient binds the flags of cmd and connects a store client to the configured shard
func NewStoreClient(cmd *cobra.Command) (store.IStore, error) {
	if err := BindCommandFlags(cmd); err != nil {
		return nil, err
	}
	s, err := GetSerializer()
	if err != nil {
		return nil, err
	}
	t, err := GetTransport()
	if err != nil {
		return nil, err
	}
	return client.NewRPCStore(GetShardID(), *GetClientConfig(), t, s)
}

// --------------------------------------------------------------------------
// Input / Output
// --------------------------------------------------------------------------

// ReadJSONArg returns the JSON of arg, "-" reads it from stdin
func ReadJSONArg(arg string, stdin io.Reader) ([]byte, error) {
	if arg != "-" {
		return []byte(arg), nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return nil, fmt.Errorf("failed to read stdin: %w", err)
	}
	return data, nil
}

// ParseDocument parses a JSON object given as argument or on stdin ("-")
func ParseDocument(arg string, stdin io.Reader) (doc.Document, error) {
	data, err := ReadJSONArg(arg, stdin)
	if err != nil {
		return nil, err
	}
	d, err := doc.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("invalid document: %w", err)
	}
	return d, nil
}

// PrintJSON writes v as indented JSON to stdout
func PrintJSON(v any) error {
	return WriteJSON(os.Stdout, v)
}

// WriteJSON writes v as indented JSON followed by a newline
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

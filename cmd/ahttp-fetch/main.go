/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 */

// Command ahttp-fetch is a thin demonstration client driving one
// session.Session end-to-end: flags (or a config file loaded through
// viper) build a session.Options, one Request/RequestBatch call is issued,
// and the response (or error) is printed to stdout.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sabouaram/ahttp/body"
	"github.com/sabouaram/ahttp/hook"
	"github.com/sabouaram/ahttp/logx"
	"github.com/sabouaram/ahttp/message"
	"github.com/sabouaram/ahttp/session"
)

var (
	cfgFile       string
	flagVerb      string
	flagHeaders   []string
	flagData      string
	flagTimeout   time.Duration
	flagFollow    bool
	flagInsecure  bool
	flagResolver  string
	flagLogLevel  string
	flagBatchURIs []string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "ahttp-fetch [uri]",
		Short: "Issue one or more requests through an ahttp session",
		Args:  cobra.MinimumNArgs(0),
		RunE:  runFetch,
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (json/yaml/toml, viper-loaded)")
	root.Flags().StringVarP(&flagVerb, "request", "X", "get", "HTTP verb")
	root.Flags().StringArrayVarP(&flagHeaders, "header", "H", nil, "header in Name: Value form, repeatable")
	root.Flags().StringVarP(&flagData, "data", "d", "", "request body, sent as text/plain")
	root.Flags().DurationVar(&flagTimeout, "timeout", 30*time.Second, "per-request timeout")
	root.Flags().BoolVarP(&flagFollow, "location", "L", false, "follow redirects")
	root.Flags().BoolVarP(&flagInsecure, "insecure", "k", false, "skip TLS certificate verification")
	root.Flags().StringVar(&flagResolver, "resolver", "system", "resolver class: system, native or https")
	root.Flags().StringVar(&flagLogLevel, "log-level", "info", "log level: critical, fatal, error, warning, info, debug")
	root.Flags().StringArrayVar(&flagBatchURIs, "also", nil, "additional URIs dispatched in the same batch, repeatable")

	return root
}

func runFetch(cmd *cobra.Command, args []string) error {
	v := viper.New()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("ahttp-fetch: reading config: %w", err)
		}
	}

	uri := v.GetString("uri")
	if len(args) > 0 {
		uri = args[0]
	}
	if uri == "" {
		return fmt.Errorf("ahttp-fetch: a URI is required, either as an argument or config's \"uri\" key")
	}

	logger := logx.New()
	logger.SetLevel(logx.ParseLevel(flagLogLevel))
	logx.SetSPF13Level(logger, logx.ParseLevel(flagLogLevel))

	// A config file's session/requestOptions keys are unmarshaled (via
	// session.Options' mapstructure tags) before any CLI flag override is
	// applied, so --flags always win over the file.
	opts := session.Default()
	if cfgFile != "" {
		if err := v.Unmarshal(&opts); err != nil {
			return fmt.Errorf("ahttp-fetch: decoding config into session.Options: %w", err)
		}
	}
	if cmd.Flags().Changed("resolver") || opts.ResolverClass == "" {
		opts.ResolverClass = flagResolver
	}
	if cmd.Flags().Changed("insecure") {
		opts.TLS.InsecureSkipVerify = flagInsecure
	}
	opts.Logger = func() logx.Logger { return logger }

	hooks := hook.Hooks{}
	if flagFollow {
		hooks.Follow = func(req *message.Request, resp *message.Response, location string) hook.RedirectDecision {
			return hook.RedirectDecision{Follow: true, Location: location}
		}
	}

	sess, err := session.New(opts, hooks)
	if err != nil {
		return fmt.Errorf("ahttp-fetch: building session: %w", err)
	}

	headers := make(map[string]string, len(flagHeaders))
	for _, h := range flagHeaders {
		name, value, ok := strings.Cut(h, ":")
		if !ok {
			return fmt.Errorf("ahttp-fetch: invalid -H value %q, want Name: Value", h)
		}
		headers[strings.TrimSpace(name)] = strings.TrimSpace(value)
	}

	reqOpts := session.RequestOptions{
		Headers: headers,
		Timeout: flagTimeout,
	}
	if flagData != "" {
		enc := body.Text(flagData)
		reqOpts.Body = &enc
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), flagTimeout+5*time.Second)
	defer cancel()

	verb := strings.ToLower(flagVerb)
	batch := []session.BatchRequest{{Verb: verb, URI: uri, Options: reqOpts}}
	for _, extra := range flagBatchURIs {
		batch = append(batch, session.BatchRequest{Verb: verb, URI: extra, Options: reqOpts})
	}

	results := sess.RequestBatch(ctx, batch)
	failed := false
	for i, res := range results {
		if res.Error != nil {
			failed = true
			fmt.Fprintf(os.Stderr, "%s: %s\n", batch[i].URI, res.Error.Error())
			continue
		}
		printResponse(batch[i].URI, res.Response)
	}
	if failed {
		return fmt.Errorf("ahttp-fetch: one or more requests failed")
	}
	return nil
}

func printResponse(uri string, resp *message.Response) {
	fmt.Printf("# %s -> %d\n", uri, resp.Status)
	resp.Headers.Range(func(name, value string) {
		fmt.Printf("%s: %s\n", name, value)
	})
	fmt.Println()
	if resp.Body == nil {
		return
	}
	rc, err := resp.Body.Reader()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ahttp-fetch: reading body: %v\n", err)
		return
	}
	defer rc.Close()
	io.Copy(os.Stdout, rc)
	fmt.Println()
}

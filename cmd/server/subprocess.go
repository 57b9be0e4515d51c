package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// toWSURL converts a listen addr (e.g. ":8765" or "0.0.0.0:8765") to the
// ws:// URL a locally spawned bot should connect to.
func toWSURL(addr string) string {
	base := addr
	if strings.HasPrefix(base, ":") {
		base = "localhost" + base
	}
	if strings.HasPrefix(base, "0.0.0.0:") || strings.HasPrefix(base, "[::]:") {
		parts := strings.Split(base, ":")
		base = "localhost:" + parts[len(parts)-1]
	}
	return "ws://" + base + "/ws"
}

var spawnSeq int64

// spawnBots launches each command as a local process with the server's
// websocket URL in its environment, prefixing its stdout/stderr so
// multiple bots interleave readably. Each returned channel closes once
// that process exits.
func spawnBots(logger zerolog.Logger, ctx context.Context, cmds []string, serverWS string) []<-chan error {
	chans := make([]<-chan error, 0, len(cmds))
	for _, cmdStr := range cmds {
		chans = append(chans, spawnBot(logger, ctx, cmdStr, serverWS))
	}
	return chans
}

func spawnBot(logger zerolog.Logger, ctx context.Context, cmdStr, serverWS string) <-chan error {
	logger.Info().Str("cmd", cmdStr).Str("server", serverWS).Msg("server: spawning bot")

	cmd := exec.CommandContext(ctx, "sh", "-c", cmdStr)
	cmd.Env = append(os.Environ(), "ALGOPOKER_SERVER="+serverWS)

	stdout, _ := cmd.StdoutPipe()
	stderr, _ := cmd.StderrPipe()

	seq := atomic.AddInt64(&spawnSeq, 1)
	name := cmdStr
	if fields := strings.Fields(cmdStr); len(fields) > 0 {
		name = fields[0]
	}
	prefix := fmt.Sprintf("[bot#%d %s] ", seq, name)

	done := make(chan error, 1)
	if err := cmd.Start(); err != nil {
		logger.Error().Err(err).Str("cmd", cmdStr).Msg("server: failed to start bot")
		done <- err
		close(done)
		return done
	}

	go copyWithPrefix(os.Stdout, stdout, prefix)
	go copyWithPrefix(os.Stderr, stderr, prefix)
	go func() {
		err := cmd.Wait()
		if err != nil {
			logger.Error().Err(err).Str("cmd", cmdStr).Msg("server: bot exited with error")
		} else {
			logger.Info().Str("cmd", cmdStr).Msg("server: bot exited")
		}
		done <- err
		close(done)
	}()
	return done
}

func copyWithPrefix(dst *os.File, src io.Reader, prefix string) {
	s := bufio.NewScanner(src)
	for s.Scan() {
		fmt.Fprintln(dst, prefix+s.Text())
	}
}

// waitAll merges a set of per-process done channels into one channel that
// fires once every process has exited.
func waitAll(chans []<-chan error) <-chan error {
	if len(chans) == 0 {
		return nil
	}
	out := make(chan error, 1)
	go func() {
		var firstErr error
		for _, ch := range chans {
			if err := <-ch; err != nil && firstErr == nil {
				firstErr = err
			}
		}
		out <- firstErr
		close(out)
	}()
	return out
}

// Command premeet joins the pre-meeting channel of a room and drives it from
// a line-oriented console.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Wyydra/premeet/internal/adapter/driven/media/ice"
	"github.com/Wyydra/premeet/internal/adapter/driven/media/pion"
	"github.com/Wyydra/premeet/internal/adapter/driven/notify"
	"github.com/Wyydra/premeet/internal/adapter/driven/signaling"
	"github.com/Wyydra/premeet/internal/config"
	"github.com/Wyydra/premeet/internal/core/domain"
	"github.com/Wyydra/premeet/internal/core/service"
	"github.com/Wyydra/premeet/internal/core/store"
	"github.com/Wyydra/premeet/internal/logging"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		l := logging.Setup("info", true)
		l.Fatal().Err(err).Msg("Invalid configuration")
	}

	room := flag.String("room", "", "meeting room name")
	flag.StringVar(&cfg.SignalingURL, "server", cfg.SignalingURL, "signaling server URL")
	flag.StringVar(&cfg.ICEURL, "ice-url", cfg.ICEURL, "TURN credentials URL for the pre-call test")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level")
	flag.BoolVar(&cfg.PreCallRelayOnly, "relay-only", cfg.PreCallRelayOnly, "probe through TURN relays only")
	flag.Parse()

	l := logging.Setup(cfg.LogLevel, cfg.LogPretty)
	if *room == "" {
		l.Fatal().Msg("-room is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st := store.NewClientStore(notify.NewLogNotifier())
	channel := service.NewIntentSyncChannel(signaling.NewDialer(cfg.SignalingURL), st, notify.NewLogNotifier())

	proberOpts := pion.DefaultProberOptions()
	proberOpts.RelayOnly = cfg.PreCallRelayOnly
	precall := service.NewPreCallService(cfg.ICEURL, ice.NewHTTPFetcher(10*time.Second), pion.NewProber(proberOpts), st)

	runErr := make(chan error, 1)
	go func() { runErr <- channel.Run(ctx, *room) }()

	c := &console{
		ctx:     ctx,
		out:     os.Stdout,
		store:   st,
		channel: channel,
		precall: precall,
		self:    func() domain.ParticipantID { return channel.Status().LocalID },
	}
	lines := make(chan string)
	go c.read(os.Stdin, lines)

	fmt.Fprintln(c.out, "commands: status, record, transcribe, consent on|off, precall, poll <question>|<answer>|<answer>..., polls, vote <n> <i,j>, quit")
	for {
		select {
		case <-ctx.Done():
			<-channel.Done()
			return
		case err := <-runErr:
			if err != nil {
				l.Error().Err(err).Msg("Premeeting channel stopped")
			}
			return
		case line, ok := <-lines:
			if !ok {
				stop()
				continue
			}
			if !c.exec(line) {
				stop()
			}
		}
	}
}

type console struct {
	ctx     context.Context
	out     io.Writer
	store   *store.Store
	channel *service.IntentSyncChannel
	precall *service.PreCallService
	self    func() domain.ParticipantID
}

func (c *console) read(in io.Reader, lines chan<- string) {
	defer close(lines)
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		lines <- sc.Text()
	}
}

// exec runs one command and reports whether the console keeps going.
func (c *console) exec(line string) bool {
	cmd, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
	switch cmd {
	case "":
	case "quit", "exit":
		return false
	case "status":
		c.status()
	case "record":
		c.report(c.channel.ToggleRecorded(c.ctx))
	case "transcribe":
		c.report(c.channel.ToggleTranscribed(c.ctx))
	case "consent":
		c.store.Dispatch(store.SetUnsafeRoomConsent{Consent: rest == "on"})
		c.status()
	case "precall":
		go func() {
			if err := c.precall.Run(c.ctx); err != nil {
				fmt.Fprintln(c.out, "pre-call test failed:", err)
				return
			}
			c.status()
		}()
	case "poll":
		c.createPoll(rest)
	case "polls":
		c.listPolls()
	case "vote":
		c.vote(rest)
	default:
		fmt.Fprintf(c.out, "unknown command %q\n", cmd)
	}
	return true
}

func (c *console) report(err error) {
	switch {
	case errors.Is(err, service.ErrNotModerator):
		fmt.Fprintln(c.out, "only the pre-meeting moderator can change this")
	case errors.Is(err, service.ErrNotJoined):
		fmt.Fprintln(c.out, "not joined yet")
	case err != nil:
		fmt.Fprintln(c.out, "error:", err)
	default:
		c.status()
	}
}

func (c *console) status() {
	s := c.channel.Status()
	st := c.store.State()
	pm := st.PreMeeting
	fmt.Fprintf(c.out, "room=%s phase=%s moderator=%t recorded=%t transcribed=%t consent=%t precall=%s\n",
		s.Room, s.Phase, pm.IsPremeetingModerator, pm.WillBeRecorded, pm.WillBeTranscribed, pm.UnsafeRoomConsent, pm.PreCallTest.Status)
	if r := pm.PreCallTest.Result; r != nil {
		fmt.Fprintf(c.out, "  rtt=%.1fms jitter=%.1fms loss=%.2f connectivity=%t throughput=%.0fkbps\n",
			r.RTT, r.Jitter, r.FractionalLoss, r.MediaConnectivity, r.Throughput)
	}
	if st.Transcribing.IsTranscribing {
		fmt.Fprintf(c.out, "  transcriber=%s\n", st.Transcribing.TranscriberJID)
	}
}

// createPoll takes "question|answer|answer...".
func (c *console) createPoll(line string) {
	parts := strings.Split(line, "|")
	form := service.NewPollForm(c.store, c.self(), nil)
	form.SetQuestion(parts[0])
	answers := parts[1:]
	for len(form.Answers()) < len(answers) {
		form.AddAnswer(-1)
	}
	for i, a := range answers {
		_ = form.SetAnswer(i, a)
	}
	id, err := form.Submit()
	if err != nil {
		fmt.Fprintln(c.out, "poll rejected:", err)
		return
	}
	fmt.Fprintln(c.out, "poll saved:", id)
}

func (c *console) listPolls() {
	polls := c.store.State().Polls
	for i, id := range polls.IDs() {
		p, _ := polls.Get(id)
		fmt.Fprintf(c.out, "%d. %s\n", i+1, p.Question)
		for j, a := range p.Answers {
			fmt.Fprintf(c.out, "   %d) %s (%d)\n", j+1, a.Name, len(a.Voters))
		}
	}
}

// vote takes "<poll number> <answer numbers, comma separated>"; no answers skips.
func (c *console) vote(args string) {
	polls := c.store.State().Polls
	fields := strings.Fields(args)
	var n int
	if len(fields) == 0 {
		fmt.Fprintln(c.out, "usage: vote <poll> <answers>")
		return
	}
	if _, err := fmt.Sscanf(fields[0], "%d", &n); err != nil || n < 1 || n > polls.Len() {
		fmt.Fprintln(c.out, "no such poll")
		return
	}
	id := polls.IDs()[n-1]
	p, _ := polls.Get(id)

	var choice []bool
	if len(fields) > 1 {
		choice = make([]bool, len(p.Answers))
		for _, s := range strings.Split(fields[1], ",") {
			var i int
			if _, err := fmt.Sscanf(s, "%d", &i); err != nil || i < 1 || i > len(choice) {
				fmt.Fprintln(c.out, "no such answer:", s)
				return
			}
			choice[i-1] = true
		}
	}
	voter := c.self().String()
	// the reducer drops invalid votes, so check on a copy first
	if err := p.RegisterVote(voter, choice); err != nil {
		fmt.Fprintln(c.out, "vote rejected:", err)
		return
	}
	c.store.Dispatch(store.RegisterVote{ID: id, VoterID: voter, Choice: choice})
	c.listPolls()
}

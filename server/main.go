package main

import (
	"blackjack-table/server/agent"
	"blackjack-table/server/engine"
	"blackjack-table/server/judge"
	"blackjack-table/server/llm"
	"blackjack-table/server/store"
	"context"
	"fmt"
	"io"
	"log"
	mrand "math/rand"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/pterm/pterm"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	_ = godotenv.Load()

	cfg, err := loadConfig(os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}
	if !cfg.UseColor {
		pterm.DisableColor()
	}

	if cfg.Migrate || cfg.Serve {
		runServer(cfg)
		return
	}

	if cfg.LLM {
		if err := llm.CheckConfig(cfg.LLMModel); err != nil {
			log.Fatal(err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if cfg.unattended() {
		// keyboard play keeps the default Ctrl+C; auto play finishes the round
		go watchSignals(cancel)
	}

	var db *store.DB
	if cfg.DatabaseURL != "" {
		p, err := store.Open(cfg.DatabaseURL)
		if err != nil {
			log.Printf("DB disabled (open failed): %v", err)
		} else {
			db = p
			defer db.Close(context.Background())
			if cfg.AutoMigrate {
				if err := store.Migrate(context.Background(), db); err != nil {
					log.Printf("migrate failed (continuing without DB): %v", err)
					db = nil
				}
			}
		}
	}

	sess := playSession(ctx, cfg, db, os.Stdin, os.Stdout)

	if cfg.Judge {
		if db == nil {
			log.Printf("judge skipped: no DATABASE_URL")
			return
		}
		seeds := newSeedStream(uint64(cfg.DeckSeed))
		seeds.next()
		t0 := time.Now()
		acc, err := judge.EvaluateSession(context.Background(), db, sess.ID, cfg.JudgeTrials, int64(seeds.next()>>1))
		if err != nil {
			log.Printf("judge failed: %v", err)
			return
		}
		section(os.Stdout, "Decision judge")
		fmt.Printf("%d/%d decisions at best EV (%.1f%%), %d trials each, %s\n",
			acc.Good, acc.Total, 100*acc.Ratio(), cfg.JudgeTrials, time.Since(t0).Round(time.Millisecond))
	}
}

// playSession runs one session at the table and prints its summary.
func playSession(ctx context.Context, cfg Config, db *store.DB, in io.Reader, out io.Writer) *Session {
	sess := NewSession(cfg.WalletStart, cfg.BetAmount)
	con := NewConsole(in, out)
	con.debug = cfg.Debug

	var lobby Lobby = con
	mode := "console"
	switch {
	case cfg.Auto:
		con.auto = agent.BasicStrategy{Debug: cfg.Debug}
		lobby = autoLobby{con}
		mode = "auto"
	case cfg.LLM:
		con.auto = llm.NewPlayer(ctx, cfg.LLMModel, cfg.Debug)
		lobby = autoLobby{con}
		mode = "llm"
	}

	var audit *auditLog
	if db != nil {
		audit = startAudit(ctx, db, sess, mode, cfg.DeckSeed)
	}
	if cfg.Debug {
		log.Printf("session %s seed=%d wallet=%d bet=%d", sess.ID, cfg.DeckSeed, sess.Wallet, sess.Bet)
	}

	maxRounds := 0
	if cfg.unattended() {
		maxRounds = cfg.MaxRounds
	}
	t := &Table{
		Session:   sess,
		Deck:      engine.NewDeck(cfg.DeckSeed),
		Player:    con,
		Observer:  con,
		Lobby:     lobby,
		Audit:     audit,
		MaxRounds: maxRounds,
	}
	if err := t.Run(ctx); err != nil {
		// input gone mid-round: the bet already debited stays lost
		log.Printf("session ended: %v", err)
	}
	audit.Finish(context.Background(), sess.Wallet)

	seeds := newSeedStream(uint64(cfg.DeckSeed))
	printSummary(out, sess, mrand.New(mrand.NewSource(int64(seeds.next()>>1))))
	return sess
}

func printSummary(w io.Writer, s *Session, rng *mrand.Rand) {
	st := &s.Stats
	if st.Rounds == 0 {
		return
	}
	section(w, "Session summary")
	fmt.Fprintf(w, "Rounds: %d  W/L/P: %d/%d/%d  Blackjacks: %d  Doubles: %d  Surrenders: %d  Busts: %d\n",
		st.Rounds, st.Wins, st.Losses, st.Pushes, st.Blackjacks, st.Doubles, st.Surrenders, st.Busts)

	net := fmt.Sprintf("%+d", st.Net)
	if st.Net < 0 {
		net = bad(net)
	} else {
		net = good(net)
	}
	fmt.Fprintf(w, "Wallet: $%d  Net: %s  (%.3f bets/round)\n", s.Wallet, net, st.PerRound(s.Bet))

	lo, hi := WilsonCI95(st.Wins, st.Pushes, st.Rounds)
	fmt.Fprintf(w, "Win rate: %.1f%%  %s\n", 100*st.WinRate(), dim(fmt.Sprintf("95%% CI [%.1f%%, %.1f%%]", 100*lo, 100*hi)))
	if st.Rounds > 1 {
		blo, bhi := BootstrapCI95(st.Deltas, 1000, rng)
		fmt.Fprintf(w, "Net/round: %.2f  %s\n", float64(st.Net)/float64(st.Rounds), dim(fmt.Sprintf("95%% CI [%.2f, %.2f]", blo, bhi)))
	}
}

func runServer(cfg Config) {
	mustEnv("DATABASE_URL")
	db, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close(context.Background())

	if cfg.Migrate || cfg.AutoMigrate {
		if err := store.Migrate(context.Background(), db); err != nil {
			log.Fatal(err)
		}
		log.Println("migrated")
	}
	if !cfg.Serve {
		return
	}

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: Router(db), ReadTimeout: 15 * time.Second, WriteTimeout: 15 * time.Second}
	log.Printf("listening on http://localhost:%s (Ctrl+C to stop)", cfg.Port)
	log.Fatal(srv.ListenAndServe())
}

func watchSignals(cancel context.CancelFunc) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	<-c
	cancel()
	<-c
	os.Exit(130)
}

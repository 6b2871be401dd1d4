package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/satorunet/onj-jintori/internal/protocol"
)

func main() {
	var (
		url   = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		name  = flag.String("name", "bot", "player name (numbered when -n > 1)")
		team  = flag.String("team", "", "team tag (TEAM rounds)")
		count = flag.Int("n", 1, "number of bots")
		side  = flag.Duration("side", 1500*time.Millisecond, "time spent on each side of the square loop")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)

	stop := make(chan struct{})
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	go func() {
		<-sig
		close(stop)
	}()

	var wg sync.WaitGroup
	for i := 0; i < *count; i++ {
		n := *name
		if *count > 1 {
			n = fmt.Sprintf("%s%d", *name, i+1)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := runBot(*url, n, *team, *side, stop, logger); err != nil {
				logger.Printf("%s: %v", n, err)
			}
		}()
	}
	wg.Wait()
}

func runBot(url, name, team string, side time.Duration, stop <-chan struct{}, logger *log.Logger) error {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	kind, b, err := conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("read init: %w", err)
	}
	if kind != websocket.TextMessage {
		return fmt.Errorf("unexpected init frame kind %d", kind)
	}
	var init protocol.InitMsg
	if err := json.Unmarshal(b, &init); err != nil {
		return fmt.Errorf("decode init: %w", err)
	}
	logger.Printf("%s: INIT id=%d mode=%s world=%dx%d tv=%d", name, init.ID, init.Mode, init.World.Width, init.World.Height, init.TerritoryVersion)

	if err := conn.WriteJSON(protocol.JoinMsg{Type: protocol.TypeJoin, Name: name, Team: team}); err != nil {
		return fmt.Errorf("send join: %w", err)
	}
	if err := conn.WriteJSON(protocol.ViewportMsg{Type: protocol.TypeViewport, W: 480, H: 800}); err != nil {
		return fmt.Errorf("send viewport: %w", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		readLoop(conn, name, init.ID, logger)
	}()

	ticker := time.NewTicker(side)
	defer ticker.Stop()
	var heading float64
	for leg := 0; ; leg++ {
		select {
		case <-stop:
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			<-done
			return nil
		case <-done:
			return nil
		case <-ticker.C:
			// Four right turns close the loop back onto home territory.
			heading = squareHeading(leg)
			boost := leg%8 == 0
			if err := conn.WriteMessage(websocket.BinaryMessage, protocol.EncodeInput(heading, false, boost)); err != nil {
				return fmt.Errorf("send input: %w", err)
			}
		}
	}
}

func squareHeading(leg int) float64 {
	a := float64(leg%4) * math.Pi / 2
	if a > math.Pi {
		a -= 2 * math.Pi
	}
	return a
}

func readLoop(conn *websocket.Conn, name string, self uint16, logger *log.Logger) {
	var states int
	for {
		kind, b, err := conn.ReadMessage()
		if err != nil {
			if ce, ok := err.(*websocket.CloseError); ok {
				logger.Printf("%s: closed code=%d reason=%q", name, ce.Code, ce.Text)
			}
			return
		}
		if kind != websocket.BinaryMessage {
			continue
		}
		typ, err := protocol.PeekType(b)
		if err != nil {
			continue
		}
		switch typ {
		case protocol.TypeState:
			var st protocol.StateMsg
			if err := protocol.Decode(b, &st); err != nil {
				continue
			}
			states++
			if states%100 == 0 {
				for _, p := range st.Players {
					if p.ID == self {
						logger.Printf("%s: pos=(%d,%d) state=%d tv=%d visible=%d tm=%d", name, p.X, p.Y, p.State, st.TerritoryVersion, len(st.Players), st.TimeRemaining)
					}
				}
			}
		case protocol.TypeDeath:
			var d protocol.DeathMsg
			if err := protocol.Decode(b, &d); err == nil && d.ID == self {
				logger.Printf("%s: died reason=%s killer=%d", name, d.Reason, d.Killer)
			}
		case protocol.TypeRoundEnd:
			var m protocol.RoundEndMsg
			if err := protocol.Decode(b, &m); err == nil {
				logger.Printf("%s: round %d (%s) over winner=%q next=%s in %ds", name, m.Round, m.Mode, m.Winner, m.NextMode, m.NextRoundSec)
			}
		case protocol.TypeError:
			var m protocol.ErrorMsg
			if err := protocol.Decode(b, &m); err == nil {
				logger.Printf("%s: refused code=%s %s", name, m.Code, m.Message)
			}
		case protocol.TypeRoundStart:
			var m protocol.RoundStartMsg
			if err := protocol.Decode(b, &m); err == nil {
				logger.Printf("%s: round %d (%s) started world=%d", name, m.Round, m.Mode, m.World.Width)
			}
		}
	}
}

package nest

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var errUnknownCommand = errors.New("unknown command")

type commandKind int

const (
	cmdNone commandKind = iota
	cmdPlayPause
	cmdStop
	cmdJump
	cmdClick
	cmdSeek
	cmdEnglish
	cmdCopy
	cmdShow
	cmdHelp
	cmdQuit
)

// command is one parsed line of the interactive player. Sentence and paragraph
// numbers are 1-based as typed.
type command struct {
	kind      commandKind
	paragraph int
	sentence  int
	percent   float64
}

func parseCommand(line string) (command, error) {
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) == 0 {
		return command{kind: cmdNone}, nil
	}

	name, args := fields[0], fields[1:]
	switch name {
	case "p", "play", "pause", "resume":
		return command{kind: cmdPlayPause}, nil
	case "s", "stop":
		return command{kind: cmdStop}, nil
	case "e", "english":
		return command{kind: cmdEnglish}, nil
	case "c", "copy":
		return command{kind: cmdCopy}, nil
	case "r", "show":
		return command{kind: cmdShow}, nil
	case "h", "help", "?":
		return command{kind: cmdHelp}, nil
	case "q", "quit", "exit":
		return command{kind: cmdQuit}, nil

	case "j", "jump":
		if len(args) != 1 {
			return command{}, fmt.Errorf("usage: j <sentence>")
		}
		n, err := positive(args[0])
		if err != nil {
			return command{}, err
		}
		return command{kind: cmdJump, sentence: n}, nil

	case "at":
		if len(args) != 2 {
			return command{}, fmt.Errorf("usage: at <paragraph> <sentence>")
		}
		p, err := positive(args[0])
		if err != nil {
			return command{}, err
		}
		s, err := positive(args[1])
		if err != nil {
			return command{}, err
		}
		return command{kind: cmdClick, paragraph: p, sentence: s}, nil

	case "seek":
		if len(args) != 1 {
			return command{}, fmt.Errorf("usage: seek <percent>")
		}
		pct, err := strconv.ParseFloat(strings.TrimSuffix(args[0], "%"), 64)
		if err != nil || pct < 0 || pct > 100 {
			return command{}, fmt.Errorf("seek needs a percentage between 0 and 100, got %q", args[0])
		}
		return command{kind: cmdSeek, percent: pct}, nil
	}

	if n, err := positive(name); err == nil && len(args) == 0 {
		return command{kind: cmdJump, sentence: n}, nil
	}
	return command{}, fmt.Errorf("%w: %q", errUnknownCommand, line)
}

func positive(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%q is not a sentence number", s)
	}
	return n, nil
}

package cmd

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	shlex "github.com/flynn-archive/go-shlex"
	log "github.com/golang/glog"
	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceRSA/pkg/broker"
	"github.com/OpenTraceLab/OpenTraceRSA/pkg/emulator"
)

var (
	consoleOpts = defaultServerOptions()
	consoleTick = defaultTick
)

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Interactive session on a server",
	Long: `Creates the implementation and reads commands from the terminal. Time only
advances through "tick", so results appear at the pace you ask for.

Commands:
  list [filter]                       list variables, optionally by name substring
  get <id|name>                       show one variable
  set <id|name> <value>               write a variable (state labels allowed)
  state <off|run|record|pause|stop>   change the run state
  lock on|off                         lock or unlock parameters
  results                             show result streams and block counts
  tick [n]                            advance n ticks (default 1)
  quit                                leave`,
	Args: cobra.NoArgs,
	RunE: runConsole,
}

func init() {
	rootCmd.AddCommand(consoleCmd)
	consoleOpts.addFlags(consoleCmd)
	consoleCmd.Flags().DurationVar(&consoleTick, "tick", consoleTick, "simulated time per tick")
}

var errQuit = errors.New("quit")

// console executes one command line at a time against a session. The
// implementation runs on the console's own clock.
type console struct {
	sess *session
	out  io.Writer
	now  time.Time
	tick time.Duration
}

func newConsole(sess *session, out io.Writer, tick time.Duration) *console {
	c := &console{sess: sess, out: out, now: time.Now(), tick: tick}
	if e, ok := sess.srv.Acquisition().(*emulator.Emulator); ok {
		e.SetClock(func() time.Time { return c.now })
	}
	return c
}

var consoleCommands = []string{"list", "get", "set", "state", "lock", "results", "tick", "quit", "exit", "help"}

func (c *console) lookup(key string) (*broker.Variable, error) {
	b := c.sess.srv.Broker()
	if id, err := strconv.ParseUint(key, 0, 32); err == nil {
		if v, ok := b.Variable(uint32(id)); ok {
			return v, nil
		}
	}
	if v, ok := b.VariableByName(key); ok {
		return v, nil
	}
	return nil, fmt.Errorf("no variable %q", key)
}

func (c *console) printVariable(v *broker.Variable) {
	unit := v.Definition().Unit
	fmt.Fprintf(c.out, "%s  %-48s %s %s [%s]\n", hexID(v.ID()), v.Name(), displayValue(v), unit, v.CurFlags())
}

// exec runs one tokenized command line.
func (c *console) exec(args []string) error {
	srv := c.sess.srv
	switch args[0] {
	case "quit", "exit":
		return errQuit

	case "help":
		fmt.Fprintln(c.out, strings.Join(consoleCommands, " "))

	case "list":
		filter := ""
		if len(args) > 1 {
			filter = strings.ToLower(args[1])
		}
		for _, v := range srv.Broker().Variables() {
			if strings.Contains(strings.ToLower(v.Name()), filter) {
				c.printVariable(v)
			}
		}

	case "get":
		if len(args) != 2 {
			return errors.New("usage: get <id|name>")
		}
		v, err := c.lookup(args[1])
		if err != nil {
			return err
		}
		c.printVariable(v)

	case "set":
		if len(args) != 3 {
			return errors.New("usage: set <id|name> <value>")
		}
		v, err := c.lookup(args[1])
		if err != nil {
			return err
		}
		val, err := v.ParseState(args[2])
		if err != nil {
			return err
		}
		if err := v.Write(val); err != nil {
			return err
		}
		c.printVariable(v)

	case "state":
		if len(args) != 2 {
			return errors.New("usage: state <off|run|record|pause|stop>")
		}
		next, err := broker.ParseState(args[1])
		if err != nil {
			return err
		}
		srv.SetState(next)
		fmt.Fprintf(c.out, "state %s\n", srv.Broker().State())

	case "lock":
		if len(args) != 2 || (args[1] != "on" && args[1] != "off") {
			return errors.New("usage: lock on|off")
		}
		srv.SetLocked(args[1] == "on")
		fmt.Fprintf(c.out, "locked %v\n", srv.Locked())

	case "results":
		for _, r := range srv.Broker().Results() {
			_, committed, _ := r.Latest()
			fmt.Fprintf(c.out, "%s  %-48s %6d kept %8d total [%s]\n", hexID(r.ID()), r.Name(), r.Blocks(), committed, r.CurFlags())
		}

	case "tick":
		n := 1
		if len(args) > 1 {
			var err error
			if n, err = strconv.Atoi(args[1]); err != nil || n < 1 {
				return fmt.Errorf("bad tick count %q", args[1])
			}
		}
		for i := 0; i < n; i++ {
			c.now = c.now.Add(c.tick)
			srv.Sustain(c.now)
		}
		fmt.Fprintf(c.out, "ticked %d (%v)\n", n, time.Duration(n)*c.tick)

	default:
		return fmt.Errorf("unknown command %q, try help", args[0])
	}
	return nil
}

func runConsole(cmd *cobra.Command, args []string) error {
	sess, err := consoleOpts.open()
	if err != nil {
		return err
	}
	defer sess.close()
	c := newConsole(sess, cmd.OutOrStdout(), consoleTick)

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)
	line.SetCompleter(func(input string) (out []string) {
		for _, name := range consoleCommands {
			if strings.HasPrefix(name, input) {
				out = append(out, name)
			}
		}
		return
	})

	for {
		input, err := line.Prompt("(rsa) ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		args, err := shlex.Split(input)
		if err != nil {
			log.Errorf("console: %v", err)
			continue
		}
		if len(args) == 0 {
			continue
		}
		err = c.exec(args)
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "error: %v\n", err)
			continue
		}
		line.AppendHistory(input)
	}
}

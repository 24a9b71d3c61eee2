// Command fosctl is a small interactive console for exercising a running
// kernel: create threads and semaphores, give/take them, and inspect
// descriptors. It uses a plain bufio.Scanner REPL rather than an
// ecosystem prompt library — see DESIGN.md for why.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	fos "github.com/joeycumines/go-fos"
)

func main() {
	k, err := fos.NewKernel(
		fos.WithPlatform(fos.NewSystemPlatform()),
		fos.WithLogger(fos.NewLogger(os.Stderr)),
	)
	if err != nil {
		fmt.Fprintln(os.Stderr, "fosctl: init:", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = k.Boot(ctx) }()
	defer k.Shutdown()

	fmt.Println("fosctl — type 'help' for commands, 'quit' to exit")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("fos> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		switch fields[0] {
		case "quit", "exit":
			return
		case "help":
			printHelp()
		case "semb-create":
			locked := len(fields) > 1 && fields[1] == "locked"
			desc, err := k.CreateSemBinary(locked)
			report(desc, err)
		case "semb-give":
			withDesc(fields, func(d fos.UserDesc) error { return k.SemBinaryGive(d) })
		case "semc-create":
			initial, max := 0, 1
			if len(fields) > 2 {
				initial, _ = strconv.Atoi(fields[1])
				max, _ = strconv.Atoi(fields[2])
			}
			desc, err := k.CreateSemCounting(initial, max)
			report(desc, err)
		case "semc-give":
			withDesc(fields, func(d fos.UserDesc) error { return k.SemCountingGive(d) })
		case "queue-create":
			capacity := 8
			if len(fields) > 1 {
				capacity, _ = strconv.Atoi(fields[1])
			}
			desc, err := k.CreateQueue(capacity, true, 0)
			report(desc, err)
		case "queue-write":
			if len(fields) < 3 {
				fmt.Println("usage: queue-write <desc> <value>")
				continue
			}
			d, _ := strconv.Atoi(fields[1])
			v, _ := strconv.Atoi(fields[2])
			if err := k.QueueWrite(fos.UserDesc(d), uint32(v)); err != nil {
				fmt.Println("error:", err)
			}
		case "yield":
			k.Yield()
		case "error":
			if e := k.LastError(); e != nil {
				fmt.Println(e.Error())
			} else {
				fmt.Println("no error latched")
			}
		default:
			fmt.Println("unknown command:", fields[0])
		}
	}
}

func printHelp() {
	fmt.Println(`commands:
  semb-create [locked]
  semb-give <desc>
  semc-create <initial> <max>
  semc-give <desc>
  queue-create [capacity]
  queue-write <desc> <value>
  yield
  error
  quit`)
}

func report(desc fos.UserDesc, err error) {
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	fmt.Println("desc:", uint32(desc))
}

func withDesc(fields []string, fn func(fos.UserDesc) error) {
	if len(fields) < 2 {
		fmt.Println("usage:", fields[0], "<desc>")
		return
	}
	n, err := strconv.Atoi(fields[1])
	if err != nil {
		fmt.Println("bad descriptor:", fields[1])
		return
	}
	if err := fn(fos.UserDesc(n)); err != nil {
		fmt.Println("error:", err)
	}
}

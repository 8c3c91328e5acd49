package cli

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mcoot/securechat-go/internal/client"
	"github.com/mcoot/securechat-go/internal/model"
)

const exitCommand = "exit"

func newChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Connect and chat interactively",
		Long: `Connects to the server, prompts to log in or register, and starts
an interactive private-messaging session. Type 'exit' at the recipient
prompt to disconnect, or while chatting to switch recipients.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd)
		},
	}
}

func runChat(cmd *cobra.Command) error {
	logger := newLogger()

	handlers := client.Handlers{
		OnIncomingMessage: func(sender, message string) {
			fmt.Printf("\n%s: %s\nYou: ", sender, message)
		},
		OnUserJoined: func(username string) {
			fmt.Printf("\n*** User %s has joined the chat!\n", username)
		},
		OnUserLeft: func(username string) {
			fmt.Printf("\n*** User %s has left the chat.\n", username)
		},
		OnMessageError: func(message string) {
			fmt.Printf("\nError: %s\n", message)
		},
		OnDisconnect: func(err error) {
			fmt.Println("\n!!! Connection lost.")
		},
	}

	c, err := client.Dial(cmd.Context(), cfg.WebsocketURL(), handlers, logger)
	if err != nil {
		return fmt.Errorf("connecting to server: %w", err)
	}
	defer func() { _ = c.Close() }()
	c.RequestTimeout = cfg.RequestTimeout

	fmt.Println("Connected to server!")

	stdin := bufio.NewReader(os.Stdin)

	if err := authenticate(c, stdin); err != nil {
		return err
	}

	return chatLoop(c, stdin)
}

// authenticate runs the login-or-register prompt until one succeeds
func authenticate(c *client.Client, stdin *bufio.Reader) error {
	for {
		choice, err := prompt(stdin, "Do you want to (L)ogin or (R)egister? ")
		if err != nil {
			return err
		}

		switch strings.ToLower(choice) {
		case "r":
			return credentialLoop(stdin, c.Register, "Registration")
		case "l":
			return credentialLoop(stdin, c.Login, "Login")
		default:
			fmt.Println("Invalid choice. Please enter 'L' to login or 'R' to register.")
		}
	}
}

// credentialLoop prompts for credentials until the operation succeeds
func credentialLoop(stdin *bufio.Reader, op func(username, password string) model.ResponsePayload, label string) error {
	for {
		username, err := prompt(stdin, "Enter your username: ")
		if err != nil {
			return err
		}
		password, err := promptPassword("Enter your password: ")
		if err != nil {
			return err
		}

		resp := op(username, password)
		if resp.Success {
			fmt.Printf("%s successful: %s\n", label, resp.Message)
			return nil
		}
		fmt.Printf("%s failed: %s. Try again.\n", label, resp.Message)
	}
}

func prompt(stdin *bufio.Reader, text string) (string, error) {
	fmt.Print(text)
	line, err := stdin.ReadString('\n')
	if err != nil {
		if err == io.EOF {
			return "", fmt.Errorf("input closed")
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func promptPassword(text string) (string, error) {
	fmt.Print(text)
	data, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// chatLoop is the outer recipient-selection loop
func chatLoop(c *client.Client, stdin *bufio.Reader) error {
	fmt.Printf("\nType '%s' at any time to disconnect.\n", exitCommand)

	for {
		recipient, err := prompt(stdin, "\nEnter username to chat with: ")
		if err != nil {
			return err
		}
		if strings.ToLower(recipient) == exitCommand {
			fmt.Println("Disconnecting from server...")
			return nil
		}

		if !c.CheckUser(recipient).Exists {
			fmt.Printf("\n!!!! User '%s' is not online. Try another user.\n", recipient)
			continue
		}

		fmt.Printf("\nStarting chat with %s. Type '%s' to switch users.\n\n", recipient, exitCommand)

		if done, err := messageLoop(c, stdin, recipient); err != nil || done {
			return err
		}
	}
}

// messageLoop sends messages to one recipient until the user switches
// or disconnects
func messageLoop(c *client.Client, stdin *bufio.Reader, recipient string) (bool, error) {
	for {
		message, err := prompt(stdin, "You: ")
		if err != nil {
			return true, err
		}

		switch strings.ToLower(message) {
		case exitCommand:
			return false, nil
		case "":
			continue
		}

		if err := c.SendMessage(recipient, message); err != nil {
			fmt.Println("\n!!! Failed to send message. Connection may be lost.")
			return true, err
		}
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var (
	serverURL string
	rootCmd   = &cobra.Command{
		Use:   "vidload",
		Short: "Video downloader CLI",
		Long:  `A command-line client for the video download lifecycle service.`,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "Server URL")

	submitCmd.Flags().String("platform", "", "Platform hint (youtube, facebook, tiktok, instagram, twitter)")
	submitCmd.Flags().String("quality", "", "Quality tier (low, medium, high, highest)")
	listCmd.Flags().String("status", "", "Filter by status")
	listCmd.Flags().String("platform", "", "Filter by platform")
	fetchCmd.Flags().StringP("output", "o", "", "Output file path")
	cleanupCmd.Flags().Int("days", 30, "Delete downloads older than this many days")
	cleanupCmd.Flags().Bool("keep-ready", false, "Keep downloads that still hold an artifact")
	cleanupCmd.Flags().Bool("dry-run", false, "Report what would be removed without deleting")

	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(cancelCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(cleanupCmd)
}

var submitCmd = &cobra.Command{
	Use:   "submit [url]",
	Short: "Submit a download request",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		platform, _ := cmd.Flags().GetString("platform")
		quality, _ := cmd.Flags().GetString("quality")

		payload := map[string]string{"original_url": args[0]}
		if platform != "" {
			payload["platform"] = platform
		}
		if quality != "" {
			payload["quality"] = quality
		}

		data, _ := json.Marshal(payload)
		resp, err := http.Post(serverURL+"/api/v1/downloads", "application/json", bytes.NewBuffer(data))
		if err != nil {
			fatalf("Error: %v\n", err)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode != http.StatusCreated {
			fatalf("Error: %s\n", string(body))
		}

		var result map[string]interface{}
		json.Unmarshal(body, &result)
		fmt.Printf("Download submitted!\n")
		fmt.Printf("ID: %s\n", result["id"])
		fmt.Printf("Platform: %s\n", result["platform"])
		fmt.Printf("Status: %s\n", result["status"])
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List downloads",
	Run: func(cmd *cobra.Command, args []string) {
		status, _ := cmd.Flags().GetString("status")
		platform, _ := cmd.Flags().GetString("platform")

		query := url.Values{}
		if status != "" {
			query.Set("status", status)
		}
		if platform != "" {
			query.Set("platform", platform)
		}
		endpoint := serverURL + "/api/v1/downloads"
		if len(query) > 0 {
			endpoint += "?" + query.Encode()
		}

		resp, err := http.Get(endpoint)
		if err != nil {
			fatalf("Error: %v\n", err)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		var downloads []map[string]interface{}
		if err := json.Unmarshal(body, &downloads); err != nil {
			fatalf("Error: %s\n", string(body))
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tURL\tPLATFORM\tSTATUS\tTITLE")
		for _, d := range downloads {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				truncate(stringField(d, "id"), 8),
				truncate(stringField(d, "original_url"), 40),
				stringField(d, "platform"),
				stringField(d, "status"),
				truncate(stringField(d, "title"), 30))
		}
		w.Flush()
	},
}

var getCmd = &cobra.Command{
	Use:   "get [id]",
	Short: "Show one download",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		resp, err := http.Get(serverURL + "/api/v1/downloads/" + args[0])
		if err != nil {
			fatalf("Error: %v\n", err)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode != http.StatusOK {
			fatalf("Error: %s\n", string(body))
		}

		var pretty bytes.Buffer
		json.Indent(&pretty, body, "", "  ")
		fmt.Println(pretty.String())
	},
}

var cancelCmd = &cobra.Command{
	Use:   "cancel [id]",
	Short: "Cancel an in-flight download",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		resp, err := http.Post(serverURL+"/api/v1/downloads/"+args[0]+"/cancel", "application/json", nil)
		if err != nil {
			fatalf("Error: %v\n", err)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode != http.StatusOK {
			fatalf("Error: %s\n", string(body))
		}
		fmt.Println("Download cancelled")
	},
}

var fetchCmd = &cobra.Command{
	Use:   "fetch [id]",
	Short: "Stream a completed artifact to a local file",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		output, _ := cmd.Flags().GetString("output")
		if output == "" {
			output = args[0] + ".mp4"
		}

		resp, err := http.Get(serverURL + "/api/v1/downloads/" + args[0] + "/file")
		if err != nil {
			fatalf("Error: %v\n", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			fatalf("Error: %s\n", string(body))
		}

		out, err := os.Create(output)
		if err != nil {
			fatalf("Error: %v\n", err)
		}
		defer out.Close()

		n, err := io.Copy(out, resp.Body)
		if err != nil {
			fatalf("Error: %v\n", err)
		}
		fmt.Printf("Saved %d bytes to %s\n", n, output)
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show download statistics",
	Run: func(cmd *cobra.Command, args []string) {
		resp, err := http.Get(serverURL + "/api/v1/downloads/stats")
		if err != nil {
			fatalf("Error: %v\n", err)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		var stats map[string]interface{}
		if err := json.Unmarshal(body, &stats); err != nil {
			fatalf("Error: %s\n", string(body))
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		for _, key := range []string{"total", "pending", "resolving", "downloading", "ready", "served", "failed", "bytes_stored"} {
			fmt.Fprintf(w, "%s\t%v\n", key, stats[key])
		}
		w.Flush()
	},
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Purge aged downloads",
	Run: func(cmd *cobra.Command, args []string) {
		days, _ := cmd.Flags().GetInt("days")
		keepReady, _ := cmd.Flags().GetBool("keep-ready")
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		query := url.Values{}
		query.Set("days", fmt.Sprintf("%d", days))
		if keepReady {
			query.Set("keep_ready", "true")
		}
		if dryRun {
			query.Set("dry_run", "true")
		}

		resp, err := http.Post(serverURL+"/api/v1/maintenance/cleanup?"+query.Encode(), "application/json", nil)
		if err != nil {
			fatalf("Error: %v\n", err)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode != http.StatusOK {
			fatalf("Error: %s\n", string(body))
		}

		var result map[string]interface{}
		json.Unmarshal(body, &result)
		fmt.Printf("Removed: %v\n", result["removed"])
		fmt.Printf("Skipped: %v\n", result["skipped"])
		fmt.Printf("Bytes freed: %v\n", result["bytes_freed"])
		if dryRun {
			fmt.Println("(dry run - nothing was deleted)")
		}
	},
}

func stringField(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format, args...)
	os.Exit(1)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

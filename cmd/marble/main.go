package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/Nabla7/mujoco-experiments/internal/manifest"
	"github.com/Nabla7/mujoco-experiments/internal/tracing"
	"github.com/Nabla7/mujoco-experiments/pkg/domain"
	"github.com/Nabla7/mujoco-experiments/pkg/marble"
	"github.com/Nabla7/mujoco-experiments/pkg/physics"
	_ "github.com/Nabla7/mujoco-experiments/pkg/physics/headless" // register the headless engine
	"github.com/Nabla7/mujoco-experiments/pkg/sim"
)

type ui struct {
	title func(a ...any) string
	ok    func(a ...any) string
	info  func(a ...any) string
	warn  func(a ...any) string
	err   func(a ...any) string
	dim   func(a ...any) string
}

func newUI() *ui {
	return &ui{
		title: color.New(color.FgHiCyan, color.Bold).SprintFunc(),
		ok:    color.New(color.FgGreen, color.Bold).SprintFunc(),
		info:  color.New(color.FgCyan).SprintFunc(),
		warn:  color.New(color.FgYellow).SprintFunc(),
		err:   color.New(color.FgRed, color.Bold).SprintFunc(),
		dim:   color.New(color.FgHiBlack).SprintFunc(),
	}
}

type profile struct {
	BaseURL string `yaml:"baseUrl"`
	APIKey  string `yaml:"apiKey"`
}

type cliConfig struct {
	CurrentProfile string             `yaml:"currentProfile"`
	Profiles       map[string]profile `yaml:"profiles"`
}

func main() {
	baseURL := getenv("MARBLE_BASE_URL", marble.DefaultBaseURL)
	apiKey := getenv("WLT_API_KEY", "")
	profileName := getenv("MARBLE_PROFILE", "")
	ui := newUI()

	flushTracing := setupTracing()

	root := &cobra.Command{
		Use:   "marble",
		Short: "Marble CLI",
		Long:  "Marble CLI for world generation, operations, and scene simulation.",
	}
	root.SetHelpTemplate(helpTemplate(ui))
	root.SilenceUsage = true

	root.PersistentFlags().StringVar(&baseURL, "base-url", baseURL, "Base URL for the Marble API")
	root.PersistentFlags().StringVar(&apiKey, "api-key", apiKey, "World Labs API key")
	root.PersistentFlags().StringVar(&profileName, "profile", profileName, "Config profile")

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg, _, _ := loadConfig()
		active := resolveProfileName(profileName, cfg)
		prof := cfg.Profiles[active]

		flags := cmd.Flags()
		if !flags.Changed("base-url") {
			if v := strings.TrimSpace(os.Getenv("MARBLE_BASE_URL")); v != "" {
				baseURL = v
			} else if prof.BaseURL != "" {
				baseURL = prof.BaseURL
			}
		}
		if !flags.Changed("api-key") {
			if v := strings.TrimSpace(os.Getenv("WLT_API_KEY")); v != "" {
				apiKey = v
			} else if prof.APIKey != "" {
				apiKey = prof.APIKey
			}
		}
		if !flags.Changed("profile") && profileName == "" && active != "" {
			profileName = active
		}
		return nil
	}

	root.AddCommand(initCmd(&profileName, ui))
	root.AddCommand(authCmd(&profileName, ui))
	root.AddCommand(generateCmd(&baseURL, &apiKey, ui))
	root.AddCommand(operationsCmd(&baseURL, &apiKey, ui))
	root.AddCommand(worldsCmd(&baseURL, &apiKey, ui))
	root.AddCommand(probeCmd(ui))
	root.AddCommand(envCmd(ui))

	if err := root.Execute(); err != nil {
		flushTracing()
		fmt.Fprintln(os.Stderr, ui.err("[ERROR]"), err.Error())
		os.Exit(1)
	}
	flushTracing()
}

// setupTracing installs the tracer provider when TRACING_ENABLED is set, so
// API calls emit client spans and carry traceparent headers. It fails open;
// the returned func flushes pending spans before the process exits.
func setupTracing() func() {
	shutdown, err := tracing.Setup(context.Background(), tracing.Config{
		Enabled:      getenvBool("TRACING_ENABLED", false),
		ServiceName:  "marble-cli",
		OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		OTLPInsecure: getenvBool("OTEL_EXPORTER_OTLP_INSECURE", false),
		SampleRatio:  tracing.ParseSampleRatio(os.Getenv("TRACING_SAMPLE_RATIO")),
	}, nil)
	if err != nil || shutdown == nil {
		return func() {}
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = shutdown(ctx)
	}
}

func initCmd(profileName *string, ui *ui) *cobra.Command {
	var (
		baseURL  string
		apiKey   string
		noPrompt bool
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize CLI config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, cfgPath, err := loadConfig()
			if err != nil {
				return err
			}
			active := resolveProfileName(*profileName, cfg)
			prof := cfg.Profiles[active]

			if baseURL == "" {
				baseURL = prof.BaseURL
			}
			if baseURL == "" {
				baseURL = marble.DefaultBaseURL
			}
			if apiKey == "" {
				apiKey = prof.APIKey
			}

			if !noPrompt {
				reader := bufio.NewReader(os.Stdin)
				baseURL = prompt(reader, "Base URL", baseURL)
				if apiKey == "" {
					k, err := promptSecret("API Key (optional)")
					if err != nil {
						return err
					}
					apiKey = k
				}
			}

			prof.BaseURL = strings.TrimSpace(baseURL)
			if apiKey != "" {
				prof.APIKey = strings.TrimSpace(apiKey)
			}

			if cfg.Profiles == nil {
				cfg.Profiles = map[string]profile{}
			}
			cfg.Profiles[active] = prof
			if cfg.CurrentProfile == "" || *profileName != "" {
				cfg.CurrentProfile = active
			}

			if err := saveConfig(cfg, cfgPath); err != nil {
				return err
			}
			fmt.Printf("%s Initialized profile '%s' at %s\n", ui.ok("[OK]"), active, cfgPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&baseURL, "base-url", "", "Base URL for the Marble API")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "World Labs API key")
	cmd.Flags().BoolVar(&noPrompt, "no-prompt", false, "Disable interactive prompts")
	return cmd
}

func authCmd(profileName *string, ui *ui) *cobra.Command {
	auth := &cobra.Command{
		Use:   "auth",
		Short: "Manage stored credentials",
	}

	var apiKey string
	set := &cobra.Command{
		Use:   "set",
		Short: "Store the API key in config",
		RunE: func(cmd *cobra.Command, args []string) error {
			key := strings.TrimSpace(apiKey)
			if key == "" {
				k, err := promptSecret("API Key")
				if err != nil {
					return err
				}
				key = k
			}
			if key == "" {
				return errors.New("api key is required")
			}
			cfg, cfgPath, err := loadConfig()
			if err != nil {
				return err
			}
			active := resolveProfileName(*profileName, cfg)
			prof := cfg.Profiles[active]
			prof.APIKey = key
			if cfg.Profiles == nil {
				cfg.Profiles = map[string]profile{}
			}
			cfg.Profiles[active] = prof
			if cfg.CurrentProfile == "" || *profileName != "" {
				cfg.CurrentProfile = active
			}
			if err := saveConfig(cfg, cfgPath); err != nil {
				return err
			}
			fmt.Printf("%s API key stored for '%s'\n", ui.ok("[OK]"), active)
			return nil
		},
	}
	set.Flags().StringVar(&apiKey, "api-key", "", "World Labs API key")

	show := &cobra.Command{
		Use:   "show",
		Short: "Show stored credentials (masked)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			active := resolveProfileName(*profileName, cfg)
			prof := cfg.Profiles[active]
			fmt.Printf("%s Profile: %s\n", ui.title("marble"), active)
			fmt.Printf("%s Base URL: %s\n", ui.info("•"), emptyOr(prof.BaseURL, "<unset>"))
			fmt.Printf("%s API Key:  %s\n", ui.info("•"), maskToken(prof.APIKey))
			return nil
		},
	}

	clear := &cobra.Command{
		Use:   "clear",
		Short: "Clear the stored API key",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, cfgPath, err := loadConfig()
			if err != nil {
				return err
			}
			active := resolveProfileName(*profileName, cfg)
			prof := cfg.Profiles[active]
			prof.APIKey = ""
			cfg.Profiles[active] = prof
			if err := saveConfig(cfg, cfgPath); err != nil {
				return err
			}
			fmt.Printf("%s API key cleared for '%s'\n", ui.ok("[OK]"), active)
			return nil
		},
	}

	auth.AddCommand(set, show, clear)
	return auth
}

func generateCmd(baseURL, apiKey *string, ui *ui) *cobra.Command {
	var (
		imagesDir      string
		outDir         string
		displayName    string
		textPrompt     string
		model          string
		nImages        int
		reconstruct    bool
		public         bool
		timeout        time.Duration
		downloadAssets bool
		noWait         bool
	)

	cmd := &cobra.Command{
		Use:     "generate",
		Short:   "Upload images and generate a world",
		Example: "marble generate --images-dir ./shots --n-images 4 --download-assets",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(*apiKey) == "" {
				return errors.New("api key is required (run `marble auth set` or set WLT_API_KEY)")
			}
			switch domain.GenerationModel(model) {
			case domain.ModelMarblePlus, domain.ModelMarbleMini:
			default:
				return fmt.Errorf("model must be %q or %q", domain.ModelMarblePlus, domain.ModelMarbleMini)
			}

			absImages, err := filepath.Abs(imagesDir)
			if err != nil {
				return err
			}
			if outDir == "" {
				outDir = filepath.Join("marble_out", time.Now().Format("20060102_150405"))
			}
			absOut, err := filepath.Abs(outDir)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(absOut, 0o755); err != nil {
				return err
			}

			images, err := iterImages(absImages)
			if err != nil {
				return err
			}
			if len(images) == 0 {
				return fmt.Errorf("no images found in %s", absImages)
			}

			maxN := 4
			if reconstruct {
				maxN = 8
			}
			n := nImages
			if n > maxN {
				n = maxN
			}
			if n > len(images) {
				n = len(images)
			}
			if n < 1 {
				n = 1
			}
			selected := images[:n]
			az := azimuths(n)

			store := manifest.NewStore(filepath.Join(absOut, "manifest.json"))
			man := &domain.Manifest{
				RunID:             uuid.NewString(),
				ImagesDir:         absImages,
				OutDir:            absOut,
				SelectedImages:    selected,
				Model:             domain.GenerationModel(model),
				Public:            public,
				ReconstructImages: reconstruct,
				TextPrompt:        textPrompt,
				Uploads:           []domain.UploadRecord{},
			}
			if err := store.Save(man); err != nil {
				return err
			}

			client := marble.NewClient(*baseURL, *apiKey)
			ctx := cmd.Context()

			var mediaItems []domain.MultiImageItem
			for i, path := range selected {
				name := filepath.Base(path)
				ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")

				spin := spinner.New(spinner.CharSets[14], 120*time.Millisecond)
				spin.Suffix = fmt.Sprintf(" Uploading %s (%d/%d)...", name, i+1, n)
				spin.Start()
				prep, err := client.PrepareUpload(ctx, &domain.PrepareUploadRequest{
					FileName:  name,
					Kind:      domain.KindImage,
					Extension: ext,
					Metadata:  map[string]any{"source_path": path, "azimuth": az[i]},
				})
				if err != nil {
					spin.Stop()
					return err
				}
				data, err := os.ReadFile(path)
				if err != nil {
					spin.Stop()
					return err
				}
				err = client.UploadBytes(ctx, marble.UploadParams{
					UploadURL:       prep.UploadInfo.UploadURL,
					RequiredHeaders: prep.UploadInfo.RequiredHeaders,
					ContentType:     marble.GuessContentType(ext),
				}, data)
				spin.Stop()
				if err != nil {
					return err
				}

				man.Uploads = append(man.Uploads, domain.UploadRecord{
					Path:          path,
					Azimuth:       az[i],
					MediaAssetID:  prep.MediaAsset.MediaAssetID,
					PrepareUpload: prep,
				})
				if err := store.Save(man); err != nil {
					return err
				}
				mediaItems = append(mediaItems, domain.MultiImageItem{
					Azimuth: az[i],
					Content: domain.MediaContent{Source: "media_asset", MediaAssetID: prep.MediaAsset.MediaAssetID},
				})
				fmt.Printf("%s Uploaded %s (azimuth %.1f)\n", ui.ok("[OK]"), name, az[i])
			}

			spin := spinner.New(spinner.CharSets[14], 120*time.Millisecond)
			spin.Suffix = " Starting generation..."
			spin.Start()
			gen, err := client.GenerateWorld(ctx, &domain.GenerateRequest{
				WorldPrompt: domain.WorldPrompt{
					Type:              "multi-image",
					MultiImagePrompt:  mediaItems,
					ReconstructImages: reconstruct,
					TextPrompt:        textPrompt,
				},
				Model:       domain.GenerationModel(model),
				Permission:  domain.Permission{Public: public},
				DisplayName: displayName,
			})
			spin.Stop()
			if err != nil {
				return err
			}
			man.GenerateResponse = gen
			if err := store.Save(man); err != nil {
				return err
			}
			fmt.Printf("%s Generation started: %s\n", ui.ok("[OK]"), gen.OperationID)
			fmt.Printf("%s Manifest: %s\n", ui.dim("[..]"), store.Path())

			if noWait {
				fmt.Printf("%s Follow up with: marble operations wait %s\n", ui.info("[INFO]"), gen.OperationID)
				return nil
			}

			spin = spinner.New(spinner.CharSets[14], 120*time.Millisecond)
			spin.Suffix = " Waiting for generation..."
			spin.Start()
			res, err := client.WaitForOperation(ctx, gen.OperationID, marble.WaitOptions{Timeout: timeout})
			spin.Stop()
			if err != nil {
				return err
			}
			man.OperationResult = res
			if err := store.Save(man); err != nil {
				return err
			}

			worldID := res.WorldID()
			if worldID == "" {
				fmt.Printf("%s Operation done but no world id in metadata\n", ui.warn("[WARN]"))
				return nil
			}
			fmt.Printf("%s World ready: %s\n", ui.ok("[OK]"), worldID)

			world, err := client.GetWorld(ctx, worldID)
			if err != nil {
				return err
			}
			man.World = world
			if err := store.Save(man); err != nil {
				return err
			}
			if world.WorldMarbleURL != "" {
				fmt.Printf("%s Marble URL: %s\n", ui.info("[INFO]"), world.WorldMarbleURL)
			}

			if downloadAssets {
				downloaded, err := downloadWorldAssets(ctx, client, world, filepath.Join(absOut, "assets"), ui)
				if err != nil {
					return err
				}
				man.DownloadedAssets = downloaded
				if err := store.Save(man); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&imagesDir, "images-dir", "test_pics", "Directory containing input images (jpg/jpeg/png/webp)")
	cmd.Flags().StringVar(&outDir, "out-dir", "", "Output directory for manifest and assets (default marble_out/<timestamp>)")
	cmd.Flags().StringVar(&displayName, "display-name", "", "World display name")
	cmd.Flags().StringVar(&textPrompt, "text-prompt", "", "Optional text guidance")
	cmd.Flags().StringVar(&model, "model", string(domain.ModelMarblePlus), "Generation model")
	cmd.Flags().IntVar(&nImages, "n-images", 4, "How many images to use (max 4; max 8 with --reconstruct-images)")
	cmd.Flags().BoolVar(&reconstruct, "reconstruct-images", false, "Enable reconstruction mode (allows up to 8 images)")
	cmd.Flags().BoolVar(&public, "public", false, "Make the generated world public")
	cmd.Flags().DurationVar(&timeout, "timeout", marble.DefaultWaitTimeout, "Operation wait timeout")
	cmd.Flags().BoolVar(&downloadAssets, "download-assets", false, "Download returned assets into the output directory")
	cmd.Flags().BoolVar(&noWait, "no-wait", false, "Start the generation and exit without waiting")
	return cmd
}

func operationsCmd(baseURL, apiKey *string, ui *ui) *cobra.Command {
	ops := &cobra.Command{
		Use:   "operations",
		Short: "Operation status",
	}

	get := &cobra.Command{
		Use:   "get <id>",
		Short: "Get an operation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(*apiKey) == "" {
				return errors.New("api key is required (run `marble auth set` or set WLT_API_KEY)")
			}
			client := marble.NewClient(*baseURL, *apiKey)
			spin := spinner.New(spinner.CharSets[14], 120*time.Millisecond)
			spin.Suffix = " Fetching operation..."
			spin.Start()
			res, err := client.GetOperation(cmd.Context(), args[0])
			spin.Stop()
			if err != nil {
				return err
			}
			return printJSON(res)
		},
	}

	var (
		timeout      time.Duration
		pollInterval time.Duration
		maxInterval  time.Duration
	)
	wait := &cobra.Command{
		Use:   "wait <id>",
		Short: "Wait for an operation to finish",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(*apiKey) == "" {
				return errors.New("api key is required (run `marble auth set` or set WLT_API_KEY)")
			}
			client := marble.NewClient(*baseURL, *apiKey)
			spin := spinner.New(spinner.CharSets[14], 120*time.Millisecond)
			spin.Suffix = " Waiting for operation..."
			spin.Start()
			res, err := client.WaitForOperation(cmd.Context(), args[0], marble.WaitOptions{
				Timeout:         timeout,
				PollInterval:    pollInterval,
				MaxPollInterval: maxInterval,
			})
			spin.Stop()
			if err != nil {
				return err
			}
			fmt.Printf("%s Operation done. world_id=%s\n", ui.ok("[OK]"), emptyOr(res.WorldID(), "<none>"))
			return printJSON(res)
		},
	}
	wait.Flags().DurationVar(&timeout, "timeout", marble.DefaultWaitTimeout, "Wait timeout")
	wait.Flags().DurationVar(&pollInterval, "poll-interval", marble.DefaultPollInterval, "Initial poll interval")
	wait.Flags().DurationVar(&maxInterval, "max-poll-interval", marble.DefaultMaxPollInterval, "Poll interval cap")

	ops.AddCommand(get, wait)
	return ops
}

func worldsCmd(baseURL, apiKey *string, ui *ui) *cobra.Command {
	worlds := &cobra.Command{
		Use:   "worlds",
		Short: "World operations",
	}

	var (
		downloadAssets bool
		outDir         string
	)
	get := &cobra.Command{
		Use:   "get <id>",
		Short: "Get a world",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(*apiKey) == "" {
				return errors.New("api key is required (run `marble auth set` or set WLT_API_KEY)")
			}
			client := marble.NewClient(*baseURL, *apiKey)
			spin := spinner.New(spinner.CharSets[14], 120*time.Millisecond)
			spin.Suffix = " Fetching world..."
			spin.Start()
			world, err := client.GetWorld(cmd.Context(), args[0])
			spin.Stop()
			if err != nil {
				return err
			}
			if err := printJSON(world); err != nil {
				return err
			}
			if downloadAssets {
				_, err := downloadWorldAssets(cmd.Context(), client, world, filepath.Join(outDir, "assets"), ui)
				return err
			}
			return nil
		},
	}
	get.Flags().BoolVar(&downloadAssets, "download-assets", false, "Download world assets")
	get.Flags().StringVar(&outDir, "out-dir", ".", "Directory to download assets into")

	worlds.AddCommand(get)
	return worlds
}

func probeCmd(ui *ui) *cobra.Command {
	var engineName string
	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Report engine scene-format support",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := physics.Open(engineName)
			if err != nil {
				return fmt.Errorf("%w (registered: %s)", err, strings.Join(physics.ListEngines(), ", "))
			}
			report := physics.Probe(eng)
			if !report.USD.Supported {
				fmt.Fprintf(os.Stderr, "%s OpenUSD import is not available in engine %q\n", ui.warn("[WARN]"), engineName)
			}
			return printJSON(report)
		},
	}
	cmd.Flags().StringVar(&engineName, "engine", "headless", "Physics engine to probe")
	return cmd
}

func envCmd(ui *ui) *cobra.Command {
	var (
		engineName string
		steps      int
		frameSkip  int
		seed       int64
	)
	run := &cobra.Command{
		Use:     "run <scene>",
		Short:   "Run a random-action episode over a scene file",
		Example: "marble env run scene.xml --steps 200",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := physics.Open(engineName)
			if err != nil {
				return fmt.Errorf("%w (registered: %s)", err, strings.Join(physics.ListEngines(), ", "))
			}
			model, err := physics.LoadModel(eng, args[0])
			if err != nil {
				return err
			}
			env, err := sim.New(model, sim.Options{FrameSkip: frameSkip, Seed: seed})
			if err != nil {
				return err
			}

			obs, _, err := env.Reset()
			if err != nil {
				return err
			}
			fmt.Printf("%s Scene loaded: nq=%d nv=%d nu=%d timestep=%gs obs=%d\n",
				ui.info("[INFO]"), model.NQ(), model.NV(), model.NU(), model.Timestep(), len(obs))

			bar := progressbar.NewOptions(steps,
				progressbar.OptionSetDescription("Stepping"),
				progressbar.OptionSetWidth(18),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)
			var last *sim.Result
			for i := 0; i < steps; i++ {
				last, err = env.Step(env.SampleAction())
				if err != nil {
					return err
				}
				_ = bar.Add(1)
			}
			if last != nil {
				fmt.Printf("%s Episode finished: sim time %.3fs over %d integration steps\n",
					ui.ok("[OK]"), last.Info.Time, last.Info.Steps)
			}
			return nil
		},
	}
	run.Flags().StringVar(&engineName, "engine", "headless", "Physics engine")
	run.Flags().IntVar(&steps, "steps", 100, "Environment steps to run")
	run.Flags().IntVar(&frameSkip, "frame-skip", sim.DefaultFrameSkip, "Physics steps per environment step")
	run.Flags().Int64Var(&seed, "seed", 0, "Action sampler seed")

	cmd := &cobra.Command{
		Use:   "env",
		Short: "Scene simulation",
	}
	cmd.AddCommand(run)
	return cmd
}

// downloadWorldAssets mirrors the asset layout the API reports: thumbnail,
// pano, collider mesh, and one SPZ file per quality level.
func downloadWorldAssets(ctx context.Context, client *marble.Client, world *domain.World, dir string, ui *ui) ([]string, error) {
	if world.Assets == nil {
		fmt.Printf("%s World has no assets to download\n", ui.warn("[WARN]"))
		return nil, nil
	}

	type target struct {
		url  string
		name string
	}
	var targets []target
	if world.Assets.ThumbnailURL != "" {
		targets = append(targets, target{world.Assets.ThumbnailURL, "thumbnail.jpg"})
	}
	if world.Assets.Imagery != nil && world.Assets.Imagery.PanoURL != "" {
		targets = append(targets, target{world.Assets.Imagery.PanoURL, "pano.jpg"})
	}
	if world.Assets.Mesh != nil && world.Assets.Mesh.ColliderMeshURL != "" {
		targets = append(targets, target{world.Assets.Mesh.ColliderMeshURL, "collider_mesh.glb"})
	}
	if world.Assets.Splats != nil {
		keys := make([]string, 0, len(world.Assets.Splats.SpzURLs))
		for k := range world.Assets.Splats.SpzURLs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if u := world.Assets.Splats.SpzURLs[k]; u != "" {
				targets = append(targets, target{u, "splats_" + k + ".spz"})
			}
		}
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	var downloaded []string
	for _, tg := range targets {
		path := filepath.Join(dir, tg.name)
		if err := downloadTo(ctx, client, tg.url, path, tg.name); err != nil {
			return downloaded, err
		}
		downloaded = append(downloaded, path)
	}
	fmt.Printf("%s Downloaded %d assets under %s\n", ui.ok("[OK]"), len(downloaded), dir)
	return downloaded, nil
}

func downloadTo(ctx context.Context, client *marble.Client, url, path, desc string) error {
	body, size, err := client.DownloadAsset(ctx, url)
	if err != nil {
		return err
	}
	defer body.Close()

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	bar := progressbar.DefaultBytes(size, desc)
	if _, err := io.Copy(io.MultiWriter(f, bar), body); err != nil {
		return err
	}
	return f.Sync()
}

func iterImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	exts := map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".webp": true}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if exts[strings.ToLower(filepath.Ext(e.Name()))] {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(out)
	return out, nil
}

// azimuths spreads n views evenly over a full turn.
func azimuths(n int) []float64 {
	if n <= 0 {
		return nil
	}
	step := 360.0 / float64(n)
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i) * step
	}
	return out
}

func printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}

func getenv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getenvBool(k string, def bool) bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv(k)))
	if v == "" {
		return def
	}
	return v == "1" || v == "true" || v == "yes"
}

func helpTemplate(ui *ui) string {
	title := ui.title("marble")
	return fmt.Sprintf(`%s — CLI for Marble world generation

Usage:
  {{.UseLine}}

Commands:
{{range .Commands}}{{if (or .IsAvailableCommand .IsAdditionalHelpTopicCommand)}}
  {{rpad .Name .NamePadding }} {{.Short}}{{end}}{{end}}

Flags:
  {{.LocalFlags.FlagUsages | trimTrailingWhitespaces}}

Global Flags:
  {{.InheritedFlags.FlagUsages | trimTrailingWhitespaces}}

Config:
  %s

Examples:
  marble init
  marble auth set
  marble generate --images-dir ./shots --n-images 4 --download-assets
  marble operations wait op-123
  marble env run scene.xml --steps 200

`, title, configPath())
}

func configPath() string {
	if v := strings.TrimSpace(os.Getenv("MARBLE_CONFIG_DIR")); v != "" {
		return filepath.Join(v, "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.yaml"
	}
	return filepath.Join(home, ".marble", "config.yaml")
}

func loadConfig() (cliConfig, string, error) {
	path := configPath()
	var cfg cliConfig
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cliConfig{Profiles: map[string]profile{}}, path, nil
		}
		return cfg, path, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, path, err
	}
	if cfg.Profiles == nil {
		cfg.Profiles = map[string]profile{}
	}
	return cfg, path, nil
}

func saveConfig(cfg cliConfig, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func resolveProfileName(flag string, cfg cliConfig) string {
	if strings.TrimSpace(flag) != "" {
		return strings.TrimSpace(flag)
	}
	if v := strings.TrimSpace(os.Getenv("MARBLE_PROFILE")); v != "" {
		return v
	}
	if cfg.CurrentProfile != "" {
		return cfg.CurrentProfile
	}
	return "default"
}

func prompt(r *bufio.Reader, label, def string) string {
	if def != "" {
		fmt.Printf("%s [%s]: ", label, def)
	} else {
		fmt.Printf("%s: ", label)
	}
	line, _ := r.ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" {
		return def
	}
	return line
}

func promptSecret(label string) (string, error) {
	fmt.Printf("%s: ", label)
	b, err := termReadPassword()
	fmt.Println()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

func termReadPassword() ([]byte, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		reader := bufio.NewReader(os.Stdin)
		line, err := reader.ReadString('\n')
		return []byte(strings.TrimSpace(line)), err
	}
	return term.ReadPassword(fd)
}

func maskToken(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "<unset>"
	}
	if len(v) <= 8 {
		return "****"
	}
	return v[:4] + "..." + v[len(v)-4:]
}

func emptyOr(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}

// Command compositor is the entry point: parse flags, load configuration,
// open the X connection, wire every collaborator package into one Session,
// and run it until a fatal error or the process is killed.
package main

import (
	"fmt"
	"os"

	"github.com/BurntSushi/xgb/xproto"

	"github.com/wmcore/compositor/internal/backend/xrender"
	"github.com/wmcore/compositor/internal/cliopts"
	"github.com/wmcore/compositor/internal/config"
	"github.com/wmcore/compositor/internal/damage"
	"github.com/wmcore/compositor/internal/fade"
	"github.com/wmcore/compositor/internal/paint"
	"github.com/wmcore/compositor/internal/region"
	"github.com/wmcore/compositor/internal/session"
	"github.com/wmcore/compositor/internal/shadow"
	"github.com/wmcore/compositor/internal/window"
	"github.com/wmcore/compositor/internal/xconn"
	"github.com/wmcore/compositor/internal/xerr"
	"github.com/wmcore/compositor/internal/xevent"
	"github.com/wmcore/compositor/internal/xlog"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "compositor:", err)
		os.Exit(1)
	}
}

func run() error {
	opts, err := cliopts.Parse(os.Args[1:])
	if err != nil {
		return err
	}

	cfg := config.Default()
	if opts.ConfigPath != "" {
		cfg, err = config.Load(opts.ConfigPath)
		if err != nil {
			return err
		}
	}
	opts.Apply(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	exporter, err := xlog.NewZapExporter()
	if err != nil {
		return err
	}
	xlog.SetExporter(exporter)
	defer exporter.Sync()

	conn, err := xconn.Connect(opts.Display)
	if err != nil {
		return err
	}
	defer conn.Close()

	overlay, err := conn.GetOverlayWindow()
	if err != nil {
		return xerr.NewFatal("get composite overlay window", err)
	}

	rootFormat, ok := conn.VisualFormat(conn.RootVisual)
	if !ok {
		return xerr.NewFatal("no Render picture format for root visual", nil)
	}

	renderer := xrender.New(conn.X, nil)
	res := xconn.NewResources(conn, renderer, &conn.Ignore)

	screenW, screenH := conn.Screen.WidthInPixels, conn.Screen.HeightInPixels

	bufferPixmap, err := xproto.NewPixmapId(conn.X)
	if err != nil {
		return xerr.NewFatal("allocate compositing buffer pixmap", err)
	}
	err = xproto.CreatePixmapChecked(conn.X, conn.RootDepth, bufferPixmap, xproto.Drawable(conn.Root), screenW, screenH).Check()
	if err != nil {
		return xerr.NewFatal("create compositing buffer pixmap", err)
	}
	buffer, err := renderer.WindowPicture(0, bufferPixmap, rootFormat)
	if err != nil {
		return xerr.NewFatal("wrap compositing buffer picture", err)
	}

	target, err := renderer.WindowPicture(overlay, xproto.Pixmap(overlay), rootFormat)
	if err != nil {
		return xerr.NewFatal("wrap composite overlay picture", err)
	}

	allDamage, err := region.NewXFixesSet(conn.X)
	if err != nil {
		return xerr.NewFatal("allocate all_damage region", err)
	}

	tbl := window.NewTable()
	sched := fade.New(session.NewRealClock(), cfg.FadeDelta())
	agg := damage.New(allDamage)

	planner := paint.New(res, cfg.BlacklistSet())
	if cfg.ShadowRadius() > 0 {
		planner.EnableShadows(shadow.Build(cfg.ShadowRadius()), cfg, res)
	}

	black, err := renderer.SolidFill([4]uint16{0xffff, 0, 0, 0})
	if err != nil {
		return xerr.NewFatal("create black fallback picture", err)
	}
	painter := paint.NewPainter(renderer, res, black)
	rootTile := paint.NewRootTile(res, res, renderer)

	demux := xevent.New(tbl, sched, agg, res, cfg, res, &conn.Ignore, conn.Atoms, rootTile, conn.Root, screenW, screenH, overlay)

	sess := session.New(session.NewXPump(conn.X), demux, sched, agg, tbl, planner, painter, res, renderer, rootTile, buffer, target, screenW, screenH)

	if opts.Daemonize {
		xlog.Infof("daemonizing is not supported by this build; running in the foreground")
	}

	return sess.Run()
}

package viz

import (
	"fmt"
	"math"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/githubhash01/Honours-Project/internal/dynamics"
	"github.com/githubhash01/Honours-Project/internal/physics"
	"github.com/githubhash01/Honours-Project/internal/task"
)

const (
	playCols = 40
	playRows = 18
	playFPS  = 30
	trailCap = 120
)

type subpixel struct{ x, y int }

// Play is a bubbletea model replaying a recorded trajectory, drawing
// the benchmark system that produced it.
type Play struct {
	tk     *task.Task
	result *dynamics.Result
	dt     float64

	frame   int
	acc     float64
	speed   float64
	playing bool

	canvas *Canvas
	trail  []subpixel
}

func NewPlay(tk *task.Task, result *dynamics.Result) Play {
	dt := tk.Dt
	if len(result.Times) > 1 {
		dt = result.Times[1] - result.Times[0]
	}
	if dt <= 0 {
		dt = 0.01
	}
	p := Play{
		tk:      tk,
		result:  result,
		dt:      dt,
		speed:   1,
		playing: true,
		canvas:  NewCanvas(playCols, playRows),
	}
	p.pushTrail()
	return p
}

func (p Play) Init() tea.Cmd { return tick(playFPS) }

func (p Play) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return p, tea.Quit
		case " ":
			p.playing = !p.playing
		case "r":
			p.frame = 0
			p.acc = 0
			p.trail = p.trail[:0]
			p.playing = true
			p.pushTrail()
		case "[":
			if p.speed > 0.125 {
				p.speed /= 2
			}
		case "]":
			if p.speed < 16 {
				p.speed *= 2
			}
		}
	case tickMsg:
		if p.playing {
			p.advance()
		}
		return p, tick(playFPS)
	}
	return p, nil
}

// advance moves the playhead by the simulated time one tick covers at
// the current speed, carrying the fractional remainder.
func (p *Play) advance() {
	if len(p.result.States) == 0 {
		return
	}
	p.acc += p.speed / playFPS / p.dt
	n := int(p.acc)
	p.acc -= float64(n)
	if n == 0 {
		return
	}
	p.frame += n
	if p.frame >= len(p.result.States)-1 {
		p.frame = len(p.result.States) - 1
		p.playing = false
	}
	p.pushTrail()
}

func (p *Play) pushTrail() {
	if p.frame >= len(p.result.States) {
		return
	}
	pt, ok := p.marker(p.result.States[p.frame])
	if !ok {
		return
	}
	p.trail = append(p.trail, pt)
	if len(p.trail) > trailCap {
		p.trail = p.trail[1:]
	}
}

// marker is the moving point a task traces: bob, pole tip, end
// effector, or the mass itself.
func (p *Play) marker(x dynamics.State) (subpixel, bool) {
	switch p.tk.Name {
	case "pendulum":
		if len(x) < 1 {
			return subpixel{}, false
		}
		_, bob := p.pendulumGeom(x)
		return bob, true
	case "cartpole":
		if len(x) < 4 {
			return subpixel{}, false
		}
		_, tip, _ := p.cartpoleGeom(x)
		return tip, true
	case "arm":
		if len(x) < 2 {
			return subpixel{}, false
		}
		_, _, tip := p.armGeom(x)
		return tip, true
	default:
		if len(x) < 1 {
			return subpixel{}, false
		}
		return p.pointGeom(x), true
	}
}

func (p Play) View() string {
	if len(p.result.States) == 0 {
		return "(empty trajectory)"
	}
	p.draw()

	var b strings.Builder
	b.WriteString(Header.Render(strings.ToUpper(p.tk.Name)) + "\n")

	status := "playing"
	if p.frame >= len(p.result.States)-1 {
		status = "end, r to replay"
	} else if !p.playing {
		status = "paused"
	}
	b.WriteString(Accent.Render(status) + "\n")

	t := 0.0
	if p.frame < len(p.result.Times) {
		t = p.result.Times[p.frame]
	}
	total := 0.0
	if n := len(p.result.Times); n > 0 {
		total = p.result.Times[n-1]
	}
	b.WriteString(Label.Render("time") + Value.Render(fmt.Sprintf("%.2f / %.2f s", t, total)) + "\n")
	b.WriteString(Label.Render("frame") + Value.Render(fmt.Sprintf("%d / %d", p.frame, len(p.result.States)-1)) + "\n")
	b.WriteString(Label.Render("speed") + Value.Render(fmt.Sprintf("%gx", p.speed)) + "\n")

	x := p.result.States[p.frame]
	for i := 0; i < len(x) && i < 4; i++ {
		b.WriteString(Label.Render(fmt.Sprintf("x%d", i)) + Value.Render(fmt.Sprintf("%+.3f", x[i])) + "\n")
	}
	if p.frame < len(p.result.Controls) {
		u := p.result.Controls[p.frame]
		for i := 0; i < len(u) && i < 2; i++ {
			b.WriteString(Label.Render(fmt.Sprintf("u%d", i)) + Value.Render(fmt.Sprintf("%+.3f", u[i])) + "\n")
		}
	}

	b.WriteString(Help.Render("space: pause  r: restart  [ ]: speed  q: quit"))

	canvasView := Frame.Render(p.canvas.String())
	return lipgloss.JoinHorizontal(lipgloss.Top, canvasView, Panel.Render(b.String()))
}

func (p *Play) draw() {
	p.canvas.Clear()
	for _, pt := range p.trail {
		p.canvas.Set(pt.x, pt.y)
	}

	x := p.result.States[p.frame]
	switch p.tk.Name {
	case "pendulum":
		if len(x) < 1 {
			return
		}
		pivot, bob := p.pendulumGeom(x)
		p.canvas.Set(pivot.x, pivot.y)
		p.canvas.Line(pivot.x, pivot.y, bob.x, bob.y)
		p.canvas.Dot(bob.x, bob.y)
	case "cartpole":
		if len(x) < 4 {
			return
		}
		cart, tip, groundY := p.cartpoleGeom(x)
		p.canvas.Line(0, groundY+4, p.canvas.SubWidth()-1, groundY+4)
		for dy := 0; dy < 4; dy++ {
			for dx := -6; dx <= 6; dx++ {
				p.canvas.Set(cart.x+dx, groundY+dy)
			}
		}
		p.canvas.Line(cart.x, cart.y, tip.x, tip.y)
		p.canvas.Dot(tip.x, tip.y)
	case "arm":
		if len(x) < 2 {
			return
		}
		base, elbow, tip := p.armGeom(x)
		if goal, ok := p.tk.Running.(*task.Reach); ok {
			g := p.armPoint(goal.TargetX, goal.TargetY)
			p.canvas.Line(g.x-3, g.y, g.x+3, g.y)
			p.canvas.Line(g.x, g.y-3, g.x, g.y+3)
		}
		p.canvas.Set(base.x, base.y)
		p.canvas.Line(base.x, base.y, elbow.x, elbow.y)
		p.canvas.Dot(elbow.x, elbow.y)
		p.canvas.Line(elbow.x, elbow.y, tip.x, tip.y)
		p.canvas.Dot(tip.x, tip.y)
	default:
		if len(x) < 1 {
			return
		}
		cy := p.canvas.SubHeight() / 2
		cx := p.canvas.SubWidth() / 2
		p.canvas.Line(0, cy+4, p.canvas.SubWidth()-1, cy+4)
		p.canvas.Line(cx, cy+2, cx, cy+6)
		pt := p.pointGeom(x)
		p.canvas.Dot(pt.x, pt.y)
	}
}

// pendulumGeom places the rod with zero angle upright, so the bob
// sits above the pivot at the goal.
func (p *Play) pendulumGeom(x dynamics.State) (pivot, bob subpixel) {
	theta := x[0]
	cx, cy := p.canvas.SubWidth()/2, p.canvas.SubHeight()/2
	length := 0.4 * float64(p.canvas.SubHeight())
	pivot = subpixel{cx, cy}
	bob = subpixel{
		cx + int(length*math.Sin(theta)),
		cy - int(length*math.Cos(theta)),
	}
	return pivot, bob
}

func (p *Play) cartpoleGeom(x dynamics.State) (cart, tip subpixel, groundY int) {
	pos, theta := x[0], x[2]
	groundY = p.canvas.SubHeight() - 12
	cartX := p.canvas.SubWidth()/2 + int(pos*20)
	length := 0.55 * float64(p.canvas.SubHeight())
	cart = subpixel{cartX, groundY}
	tip = subpixel{
		cartX + int(length*math.Sin(theta)),
		groundY - int(length*math.Cos(theta)),
	}
	return cart, tip, groundY
}

func (p *Play) armGeom(x dynamics.State) (base, elbow, tip subpixel) {
	l1, l2 := 0.5, 0.5
	if arm, ok := p.tk.System.(*physics.TwoLinkArm); ok {
		l1, l2 = arm.Len1, arm.Len2
	}
	t1, t12 := x[0], x[0]+x[1]
	base = subpixel{p.canvas.SubWidth() / 2, p.canvas.SubHeight() / 2}
	s := p.armScale(l1 + l2)
	elbow = subpixel{
		base.x + int(s*l1*math.Cos(t1)),
		base.y - int(s*l1*math.Sin(t1)),
	}
	tip = subpixel{
		elbow.x + int(s*l2*math.Cos(t12)),
		elbow.y - int(s*l2*math.Sin(t12)),
	}
	return base, elbow, tip
}

// armPoint maps arm workspace coordinates to the canvas.
func (p *Play) armPoint(wx, wy float64) subpixel {
	l1, l2 := 0.5, 0.5
	if arm, ok := p.tk.System.(*physics.TwoLinkArm); ok {
		l1, l2 = arm.Len1, arm.Len2
	}
	s := p.armScale(l1 + l2)
	return subpixel{
		p.canvas.SubWidth()/2 + int(s*wx),
		p.canvas.SubHeight()/2 - int(s*wy),
	}
}

func (p *Play) armScale(reach float64) float64 {
	if reach <= 0 {
		reach = 1
	}
	return 0.45 * math.Min(float64(p.canvas.SubWidth()), float64(p.canvas.SubHeight())) / reach
}

// pointGeom slides the first state component along a rail through the
// origin, the fallback for point-mass tasks.
func (p *Play) pointGeom(x dynamics.State) subpixel {
	return subpixel{
		p.canvas.SubWidth()/2 + int(x[0]*20),
		p.canvas.SubHeight() / 2,
	}
}

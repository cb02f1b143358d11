package interp

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timmeromberg/anima-sub000/internal/llm"
	"github.com/timmeromberg/anima-sub000/internal/memory"
	"github.com/timmeromberg/anima-sub000/internal/parser"
	"github.com/timmeromberg/anima-sub000/internal/value"
)

func run(t *testing.T, src string, opts ...Option) value.Value {
	t.Helper()
	prog, err := parser.Parse(src)
	require.NoError(t, err)
	v, err := New(opts...).Run(context.Background(), prog)
	require.NoError(t, err)
	return v
}

func runErr(t *testing.T, src string, opts ...Option) error {
	t.Helper()
	prog, err := parser.Parse(src)
	require.NoError(t, err)
	_, err = New(opts...).Run(context.Background(), prog)
	require.Error(t, err)
	return err
}

func asInt(t *testing.T, v value.Value) int64 {
	t.Helper()
	i, ok := v.Data.(value.Int)
	require.True(t, ok, "expected Int, got %T", v.Data)
	return i.V
}

func asFloat(t *testing.T, v value.Value) float64 {
	t.Helper()
	f, ok := v.Data.(value.Float)
	require.True(t, ok, "expected Float, got %T", v.Data)
	return f.V
}

func asText(t *testing.T, v value.Value) string {
	t.Helper()
	s, ok := v.Data.(value.Text)
	require.True(t, ok, "expected Text, got %T", v.Data)
	return s.V
}

func asBool(t *testing.T, v value.Value) bool {
	t.Helper()
	b, ok := v.Data.(value.Bool)
	require.True(t, ok, "expected Bool, got %T", v.Data)
	return b.V
}

func errKind(t *testing.T, err error) value.Kind {
	t.Helper()
	var verr *value.Error
	require.ErrorAs(t, err, &verr)
	return verr.Kind
}

// ---- arithmetic and confidence ----

func TestArithmetic(t *testing.T) {
	v := run(t, `1 + 2 * 3`)
	assert.Equal(t, int64(7), asInt(t, v))
	assert.Equal(t, 1.0, v.Conf)
}

func TestDivisionPromotesToFloat(t *testing.T) {
	v := run(t, `7 / 2`)
	assert.Equal(t, 3.5, asFloat(t, v))

	v = run(t, `6 / 3`)
	assert.Equal(t, 2.0, asFloat(t, v))
}

func TestDivisionByZero(t *testing.T) {
	err := runErr(t, `1 / 0`)
	assert.Equal(t, value.ErrRuntime, errKind(t, err))
}

func TestModulo(t *testing.T) {
	v := run(t, `7 % 3`)
	assert.Equal(t, int64(1), asInt(t, v))
}

func TestConfidenceAnnotation(t *testing.T) {
	v := run(t, `10 ~ 0.9`)
	assert.Equal(t, int64(10), asInt(t, v))
	assert.InDelta(t, 0.9, v.Conf, 1e-9)
}

func TestConfidenceBindsLoosest(t *testing.T) {
	v := run(t, `1 + 1 ~ 0.5`)
	assert.Equal(t, int64(2), asInt(t, v))
	assert.InDelta(t, 0.5, v.Conf, 1e-9)
}

func TestReannotationReplaces(t *testing.T) {
	v := run(t, `(10 ~ 0.9) ~ 0.5`)
	assert.InDelta(t, 0.5, v.Conf, 1e-9)
}

func TestConfidenceClamps(t *testing.T) {
	v := run(t, `10 ~ 1.7`)
	assert.Equal(t, 1.0, v.Conf)
}

func TestArithmeticConfidenceProduct(t *testing.T) {
	v := run(t, `(10 ~ 0.9) + (5 ~ 0.8)`)
	assert.Equal(t, int64(15), asInt(t, v))
	assert.InDelta(t, 0.72, v.Conf, 1e-9)
}

func TestCertainOperandContributesOne(t *testing.T) {
	v := run(t, `(10 ~ 0.9) + 5`)
	assert.Equal(t, int64(15), asInt(t, v))
	assert.InDelta(t, 0.9, v.Conf, 1e-9)
}

func TestComparisonConfidenceProduct(t *testing.T) {
	v := run(t, `(10 ~ 0.9) > (5 ~ 0.8)`)
	assert.True(t, asBool(t, v))
	assert.InDelta(t, 0.72, v.Conf, 1e-9)
}

func TestEqualityConfidenceProduct(t *testing.T) {
	v := run(t, `(1 ~ 0.5) == (1 ~ 0.5)`)
	assert.True(t, asBool(t, v))
	assert.InDelta(t, 0.25, v.Conf, 1e-9)
}

func TestLogicalAndTakesMin(t *testing.T) {
	v := run(t, `(true ~ 0.9) && (true ~ 0.6)`)
	assert.True(t, asBool(t, v))
	assert.InDelta(t, 0.6, v.Conf, 1e-9)
}

func TestLogicalOrTakesMax(t *testing.T) {
	v := run(t, `(false ~ 0.9) || (true ~ 0.5)`)
	assert.True(t, asBool(t, v))
	assert.InDelta(t, 0.9, v.Conf, 1e-9)
}

func TestLogicalShortCircuit(t *testing.T) {
	prog, err := parser.Parse(`(false ~ 0.7) && probe()
true || probe()`)
	require.NoError(t, err)

	calls := 0
	in := New()
	in.RegisterBuiltin("probe", func(value.Call) (value.Value, error) {
		calls++
		return value.NewBool(true), nil
	})
	v, err := in.Run(context.Background(), prog)
	require.NoError(t, err)
	assert.True(t, asBool(t, v))
	assert.Equal(t, 0, calls)
}

func TestShortCircuitKeepsLeftConfidence(t *testing.T) {
	v := run(t, `(false ~ 0.7) && true`)
	assert.False(t, asBool(t, v))
	assert.InDelta(t, 0.7, v.Conf, 1e-9)
}

func TestNegationPreservesConfidence(t *testing.T) {
	v := run(t, `!(true ~ 0.8)`)
	assert.False(t, asBool(t, v))
	assert.InDelta(t, 0.8, v.Conf, 1e-9)
}

func TestConfidenceAccessors(t *testing.T) {
	v := run(t, `(5 ~ 0.5).confidence`)
	assert.InDelta(t, 0.5, asFloat(t, v), 1e-9)

	v = run(t, `(5 ~ 0.5).value`)
	assert.Equal(t, int64(5), asInt(t, v))
	assert.Equal(t, 1.0, v.Conf)

	v = run(t, `(5 ~ 0.5).unwrap()`)
	assert.Equal(t, int64(5), asInt(t, v))
	assert.Equal(t, 1.0, v.Conf)

	v = run(t, `(5 ~ 0.5).decompose()[1]`)
	assert.InDelta(t, 0.5, asFloat(t, v), 1e-9)
}

func TestConfidenceAccessorOnCertainValue(t *testing.T) {
	v := run(t, `5.confidence`)
	assert.Equal(t, 1.0, asFloat(t, v))
}

func TestConfidenceSurvivesMemberAccess(t *testing.T) {
	v := run(t, `("abc" ~ 0.5).length`)
	assert.Equal(t, int64(3), asInt(t, v))
	assert.InDelta(t, 0.5, v.Conf, 1e-9)

	v = run(t, `("abc" ~ 0.5).uppercase()`)
	assert.Equal(t, "ABC", asText(t, v))
	assert.InDelta(t, 0.5, v.Conf, 1e-9)
}

func TestConfidentBuiltin(t *testing.T) {
	v := run(t, `confident(5, 0.5).confidence`)
	assert.InDelta(t, 0.5, asFloat(t, v), 1e-9)
}

// ---- bindings and assignment ----

func TestValIsImmutable(t *testing.T) {
	err := runErr(t, `val x = 1
x = 2`)
	assert.Equal(t, value.ErrImmutable, errKind(t, err))
}

func TestVarReassignAndPostfix(t *testing.T) {
	v := run(t, `var x = 1
val old = x++
old * 10 + x`)
	assert.Equal(t, int64(12), asInt(t, v))
}

func TestUndefinedIdentifier(t *testing.T) {
	err := runErr(t, `nope`)
	assert.Equal(t, value.ErrName, errKind(t, err))
}

func TestShadowingInnerScope(t *testing.T) {
	v := run(t, `val x = 1
if (true) {
    val x = 2
    x
}`)
	assert.Equal(t, int64(2), asInt(t, v))
}

// ---- text ----

func TestTextConcat(t *testing.T) {
	v := run(t, `"a" + 1`)
	assert.Equal(t, "a1", asText(t, v))
}

func TestStringInterpolation(t *testing.T) {
	v := run(t, `val name = "world"
"hello ${name}, sum is ${1 + 2}"`)
	assert.Equal(t, "hello world, sum is 3", asText(t, v))
}

func TestTextMembers(t *testing.T) {
	assert.Equal(t, "HI", asText(t, run(t, `"hi".uppercase()`)))
	assert.Equal(t, int64(5), asInt(t, run(t, `"héllo".length`)))
	assert.True(t, asBool(t, run(t, `"hello".startsWith("he")`)))
	assert.Equal(t, "ell", asText(t, run(t, `"hello".substring(1, 4)`)))
	assert.Equal(t, "a-b", asText(t, run(t, `"a b".replace(" ", "-")`)))

	v := run(t, `"12".toInt() + 1`)
	assert.Equal(t, int64(13), asInt(t, v))

	v = run(t, `"nope".toInt()`)
	_, isNull := v.Data.(value.Null)
	assert.True(t, isNull)
}

// ---- control flow ----

func TestIfExpression(t *testing.T) {
	v := run(t, `if (1 > 2) { "a" } else if (2 > 3) { "b" } else { "c" }`)
	assert.Equal(t, "c", asText(t, v))
}

func TestWhenWithSubject(t *testing.T) {
	v := run(t, `val x = 7
when (x) {
    7 -> "seven"
    else -> "other"
}`)
	assert.Equal(t, "seven", asText(t, v))
}

func TestWhenGuards(t *testing.T) {
	v := run(t, `val x = 7
when {
    x > 5 -> "big"
    else -> "small"
}`)
	assert.Equal(t, "big", asText(t, v))
}

func TestWhenIsType(t *testing.T) {
	v := run(t, `fun describe(x) {
    when (x) {
        is Text -> "text"
        is Number -> "number"
        else -> "other"
    }
}
describe("hi") + "/" + describe(3)`)
	assert.Equal(t, "text/number", asText(t, v))
}

func TestWhenMatchesConfident(t *testing.T) {
	v := run(t, `when (5 ~ 0.5) {
    is Confident -> "uncertain"
    else -> "plain"
}`)
	assert.Equal(t, "uncertain", asText(t, v))
}

func TestWhenSubjectlessIsTypeErrors(t *testing.T) {
	err := runErr(t, `when { is Text -> 1 }`)
	assert.Equal(t, value.ErrType, errKind(t, err))
	assert.Contains(t, err.Error(), "requires a when subject")

	err = runErr(t, `when { is Confident -> 1 }`)
	assert.Equal(t, value.ErrType, errKind(t, err))
}

func TestWhileWithBreakAndContinue(t *testing.T) {
	v := run(t, `var total = 0
var i = 0
while (true) {
    i = i + 1
    if (i > 5) { break }
    if (i % 2 == 0) { continue }
    total = total + i
}
total`)
	assert.Equal(t, int64(9), asInt(t, v))
}

func TestForOverList(t *testing.T) {
	v := run(t, `var sum = 0
for (n in [1, 2, 3]) { sum = sum + n }
sum`)
	assert.Equal(t, int64(6), asInt(t, v))
}

func TestForOverText(t *testing.T) {
	v := run(t, `var out = ""
for (ch in "abc") { out = ch + out }
out`)
	assert.Equal(t, "cba", asText(t, v))
}

func TestForOverMapEntries(t *testing.T) {
	v := run(t, `val m = {"a": 1, "b": 2}
var total = 0
for (e in m) { total = total + e.value }
total`)
	assert.Equal(t, int64(3), asInt(t, v))
}

func TestTryCatchFinally(t *testing.T) {
	v := run(t, `var log = ""
try {
    1 / 0
} catch (e) {
    log = log + "caught"
} finally {
    log = log + "|done"
}
log`)
	assert.Equal(t, "caught|done", asText(t, v))
}

func TestCatchBindsMessage(t *testing.T) {
	v := run(t, `var msg = ""
try { 1 / 0 } catch (e) { msg = e }
msg`)
	assert.Contains(t, asText(t, v), "zero")
}

func TestFinallyRunsWithoutError(t *testing.T) {
	v := run(t, `var log = ""
try { log = log + "body" } finally { log = log + "|fin" }
log`)
	assert.Equal(t, "body|fin", asText(t, v))
}

// ---- functions ----

func TestFunctionDefaultsAndNamedArgs(t *testing.T) {
	v := run(t, `fun greet(name, greeting = "hello") { greeting + ", " + name }
greet("ana") + "|" + greet(greeting = "yo", name = "bo")`)
	assert.Equal(t, "hello, ana|yo, bo", asText(t, v))
}

func TestMissingArgument(t *testing.T) {
	err := runErr(t, `fun f(a, b) { a }
f(1)`)
	assert.Contains(t, err.Error(), "b")
}

func TestReturnStatement(t *testing.T) {
	v := run(t, `fun f(n) {
    if (n > 0) { return "pos" }
    "non-pos"
}
f(1) + "/" + f(0)`)
	assert.Equal(t, "pos/non-pos", asText(t, v))
}

func TestTrailingLambda(t *testing.T) {
	v := run(t, `fun twice(f) { f(1) + f(2) }
twice { it * 10 }`)
	assert.Equal(t, int64(30), asInt(t, v))
}

func TestMainIsInvoked(t *testing.T) {
	v := run(t, `fun main() { 42 }`)
	assert.Equal(t, int64(42), asInt(t, v))
}

func TestExtensionFunction(t *testing.T) {
	v := run(t, `fun Text.shout() { this.uppercase() + "!" }
"hi".shout()`)
	assert.Equal(t, "HI!", asText(t, v))
}

func TestClosuresCaptureEnvironment(t *testing.T) {
	v := run(t, `fun counter() {
    var n = 0
    fun tick() {
        n = n + 1
        n
    }
    tick
}
val tick = counter()
tick()
tick()`)
	assert.Equal(t, int64(2), asInt(t, v))
}

// ---- collections ----

func TestListHigherOrderOps(t *testing.T) {
	assert.Equal(t, int64(4), asInt(t, run(t, `[1, 2, 3].map { it * 2 }[1]`)))
	assert.Equal(t, int64(2), asInt(t, run(t, `[1, 2, 3, 4].filter { it > 2 }.size`)))
	assert.Equal(t, int64(10), asInt(t, run(t, `[1, 2, 3, 4].fold(0) { acc, n -> acc + n }`)))
	assert.Equal(t, int64(10), asInt(t, run(t, `[1, 2, 3, 4].reduce { a, b -> a + b }`)))
	assert.Equal(t, "1-2-3", asText(t, run(t, `[3, 1, 2].sortedBy { it }.joinToString("-")`)))
	assert.True(t, asBool(t, run(t, `[1, 2, 3].any { it > 2 }`)))
	assert.False(t, asBool(t, run(t, `[1, 2, 3].all { it > 2 }`)))
	assert.Equal(t, int64(3), asInt(t, run(t, `[1, 2, 3].find { it > 2 }`)))
	assert.Equal(t, int64(2), asInt(t, run(t, `[1, 2, 2, 3].distinct().count { it >= 2 }`)))
	assert.Equal(t, int64(6), asInt(t, run(t, `[1, 2, 3].sumOf { it }`)))
}

func TestFoldEmptyReturnsSeed(t *testing.T) {
	v := run(t, `[].fold(10) { acc, n -> acc + n }`)
	assert.Equal(t, int64(10), asInt(t, v))
}

func TestReduceEmptyFails(t *testing.T) {
	err := runErr(t, `[].reduce { a, b -> a + b }`)
	assert.Equal(t, value.ErrRuntime, errKind(t, err))
}

func TestImmutableListRejectsAdd(t *testing.T) {
	err := runErr(t, `[1].add(2)`)
	require.Error(t, err)
}

func TestMutableList(t *testing.T) {
	v := run(t, `val xs = mutable [1]
xs.add(2)
xs[0] = 10
xs[0] + xs[1]`)
	assert.Equal(t, int64(12), asInt(t, v))
}

func TestIndexOutOfRangeYieldsNull(t *testing.T) {
	v := run(t, `[1, 2][9]`)
	_, isNull := v.Data.(value.Null)
	assert.True(t, isNull)
}

func TestMapMembers(t *testing.T) {
	assert.Equal(t, "a,b", asText(t, run(t, `{"a": 1, "b": 2}.keys.joinToString(",")`)))
	assert.Equal(t, int64(3), asInt(t, run(t, `{"a": 1, "b": 2}.values.sumOf { it }`)))
	assert.True(t, asBool(t, run(t, `{"a": 1}.containsKey("a")`)))
	assert.Equal(t, int64(9), asInt(t, run(t, `{"a": 1}.getOrDefault("z", 9)`)))

	v := run(t, `val m = mutable {"a": 1}
m.put("b", 2)
m["b"]`)
	assert.Equal(t, int64(2), asInt(t, v))
}

func TestMissingMapKeyYieldsNull(t *testing.T) {
	v := run(t, `{"a": 1}["z"]`)
	_, isNull := v.Data.(value.Null)
	assert.True(t, isNull)
}

func TestSafeNavigation(t *testing.T) {
	v := run(t, `val x = null
x?.length`)
	_, isNull := v.Data.(value.Null)
	assert.True(t, isNull)
}

// ---- entities ----

func TestEntityConstruction(t *testing.T) {
	v := run(t, `entity Point {
    val x: Number
    val y: Number
}
val p = Point(3, 4)
p.x + p.y`)
	assert.Equal(t, int64(7), asInt(t, v))
}

func TestEntityDefaultsAndNamedArgs(t *testing.T) {
	v := run(t, `entity User {
    val name: Text
    val role = "viewer"
}
val u = User(name = "ana")
u.name + ":" + u.role`)
	assert.Equal(t, "ana:viewer", asText(t, v))
}

func TestEntityMissingField(t *testing.T) {
	err := runErr(t, `entity Point {
    val x: Number
    val y: Number
}
Point(1)`)
	assert.Contains(t, err.Error(), "y")
}

func TestEntityInvariant(t *testing.T) {
	src := `entity Rating {
    val score: Number
    invariant { score >= 1 && score <= 10 }
}
`
	v := run(t, src+`Rating(5).score`)
	assert.Equal(t, int64(5), asInt(t, v))

	err := runErr(t, src+`Rating(11)`)
	assert.Contains(t, err.Error(), "invariant violated for Rating")
}

func TestEntityCopy(t *testing.T) {
	src := `entity Rating {
    val score: Number
    invariant { score >= 1 && score <= 10 }
}
val r = Rating(5)
`
	v := run(t, src+`r.copy(score = 9).score`)
	assert.Equal(t, int64(9), asInt(t, v))

	err := runErr(t, src+`r.copy(score = 20)`)
	assert.Contains(t, err.Error(), "invariant violated")
}

func TestEntityFieldMutability(t *testing.T) {
	v := run(t, `entity Counter {
    var n = 0
}
val c = Counter()
c.n = 5
c.n`)
	assert.Equal(t, int64(5), asInt(t, v))

	err := runErr(t, `entity Point {
    val x: Number
}
val p = Point(1)
p.x = 2`)
	assert.Equal(t, value.ErrImmutable, errKind(t, err))
}

func TestEntityDestructuring(t *testing.T) {
	v := run(t, `entity Pair {
    val a: Number
    val b: Number
}
val (x, y) = Pair(1, 2)
x * 10 + y`)
	assert.Equal(t, int64(12), asInt(t, v))
}

func TestEntityInheritedExtension(t *testing.T) {
	v := run(t, `entity Animal {
    val name: Text
}
entity Dog : Animal {
    val name: Text
}
fun Animal.intro() { "I am " + this.name }
Dog("rex").intro()`)
	assert.Equal(t, "I am rex", asText(t, v))
}

// ---- agents ----

func TestSpawnAndMethodCall(t *testing.T) {
	v := run(t, `agent Helper {
    fun greet(name) { "hi " + name }
}
val h = spawn Helper()
h.greet("bob")`)
	assert.Equal(t, "hi bob", asText(t, v))
}

func TestAgentContextState(t *testing.T) {
	v := run(t, `agent Tally {
    context {
        var count = 0
    }
    fun bump() { count = count + 1 }
}
val a = spawn Tally()
a.bump()
a.bump()
a.count`)
	assert.Equal(t, int64(2), asInt(t, v))
}

func TestAgentConstructorParams(t *testing.T) {
	v := run(t, `agent Scout(region) {
    fun where() { "scouting " + region }
}
val s = spawn Scout("north")
s.where()`)
	assert.Equal(t, "scouting north", asText(t, v))
}

func TestAgentIDPrefix(t *testing.T) {
	v := run(t, `agent A { }
val a = spawn A()
a.id`)
	assert.Regexp(t, `^agt_[0-9a-f-]{12}$`, asText(t, v))
}

func TestDelegationBudget(t *testing.T) {
	src := `agent Worker {
    boundaries {
        maxToolCalls = 2
    }
}
val w = spawn Worker()
delegate(w) { 1 }
delegate(w) { 2 }
`
	v := run(t, src+`w.toolCalls`)
	assert.Equal(t, int64(2), asInt(t, v))

	err := runErr(t, src+`delegate(w) { 3 }`)
	assert.Contains(t, err.Error(), "tool-call budget of 2")
}

func TestDelegationSeesAgentContext(t *testing.T) {
	v := run(t, `agent Keeper {
    context {
        val secret = "s3cr3t"
    }
}
val k = spawn Keeper()
delegate(k) { secret }`)
	assert.Equal(t, "s3cr3t", asText(t, v))
}

func TestUnboundedAgentDelegates(t *testing.T) {
	v := run(t, `agent Free { }
val f = spawn Free()
delegate(f) { 1 }
delegate(f) { 2 }
delegate(f) { 3 }`)
	assert.Equal(t, int64(3), asInt(t, v))
}

func TestToolStubErrors(t *testing.T) {
	err := runErr(t, `agent Fetcher {
    tools {
        http_get(url)
    }
    fun go() { http_get("x") }
}
val f = spawn Fetcher()
f.go()`)
	assert.Contains(t, err.Error(), `tool "http_get" is not connected`)
}

func TestEmitDispatchesToHandler(t *testing.T) {
	v := run(t, `agent Listener {
    context {
        var seen = ""
    }
    on ping {
        this.seen = event
    }
    fun poke() { emit("ping") }
}
val l = spawn Listener()
l.poke()
l.seen`)
	assert.Equal(t, "ping", asText(t, v))
}

func TestEmitEntityEvent(t *testing.T) {
	v := run(t, `entity Alert {
    val level: Number
}
agent Guard {
    context {
        var lastLevel = 0
    }
    on Alert {
        this.lastLevel = event.level
    }
    fun raise(n) { emit(Alert(n)) }
}
val g = spawn Guard()
g.raise(3)
g.lastLevel`)
	assert.Equal(t, int64(3), asInt(t, v))
}

func TestEmitWithoutHandlerIsNoOp(t *testing.T) {
	v := run(t, `agent Quiet {
    fun poke() {
        emit("unknown")
        "ok"
    }
}
val q = spawn Quiet()
q.poke()`)
	assert.Equal(t, "ok", asText(t, v))
}

func TestParallelCollectsResults(t *testing.T) {
	v := run(t, `val rs = parallel {
    1 + 1
    2 + 2
}
rs[0] + rs[1]`)
	assert.Equal(t, int64(6), asInt(t, v))
}

func TestAgentTeam(t *testing.T) {
	v := run(t, `agent Sub { }
agent Lead {
    team {
        spawn Sub()
        spawn Sub()
    }
}
spawn Lead()`)
	a, ok := v.Data.(*value.Agent)
	require.True(t, ok)
	assert.Len(t, a.Team, 2)
}

func TestBoundaryRules(t *testing.T) {
	v := run(t, `agent Researcher {
    boundaries {
        maxToolCalls = 5
        can { read public sources }
        cannot { contact external services }
    }
}
spawn Researcher()`)
	a, ok := v.Data.(*value.Agent)
	require.True(t, ok)
	assert.Equal(t, []string{"read public sources"}, a.Boundary.Can)
	assert.Equal(t, []string{"contact external services"}, a.Boundary.Cannot)
}

// ---- builtins, memory, and the semantic adapter ----

func TestPrintln(t *testing.T) {
	var buf bytes.Buffer
	prog, err := parser.Parse(`println("hello", 42)`)
	require.NoError(t, err)
	_, err = New(WithStdout(&buf)).Run(context.Background(), prog)
	require.NoError(t, err)
	assert.Equal(t, "hello 42\n", buf.String())
}

func TestTypeOf(t *testing.T) {
	assert.Equal(t, "Number", asText(t, run(t, `typeOf(5)`)))
	assert.Equal(t, "Text", asText(t, run(t, `typeOf("x")`)))
}

func TestMemoryBuiltins(t *testing.T) {
	store := memory.NewInMemory()
	opts := []Option{WithMemory(store)}

	v := run(t, `remember("color", "blue")
memoryGet("color")`, opts...)
	assert.Equal(t, "blue", asText(t, v))

	v = run(t, `recall("favorite blue color").size`, opts...)
	assert.Equal(t, int64(1), asInt(t, v))

	v = run(t, `forget("color")
memoryGet("color")`, opts...)
	_, isNull := v.Data.(value.Null)
	assert.True(t, isNull)
}

func TestMemoryTierArgument(t *testing.T) {
	store := memory.NewInMemory()
	run(t, `remember("k", "v", "persistent")`, WithMemory(store))

	e, ok, err := store.Get(context.Background(), "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, memory.TierPersistent, e.Tier)
}

func TestMemoryRequiresStore(t *testing.T) {
	err := runErr(t, `remember("k", "v")`)
	assert.Contains(t, err.Error(), "memory store")
}

func TestGenerateAndSimilarity(t *testing.T) {
	mock := llm.NewMockProvider()
	mock.Responses["say hi"] = "hello there"
	opts := []Option{WithLLM(mock)}

	v := run(t, `generate("say hi")`, opts...)
	assert.Equal(t, "hello there", asText(t, v))

	v = run(t, `similarity("red apple", "red apple")`, opts...)
	assert.InDelta(t, 1.0, asFloat(t, v), 1e-9)
}

func TestSemanticTextOps(t *testing.T) {
	mock := llm.NewMockProvider()
	mock.Responses["Summarize"] = "short"
	v := run(t, `"a very long report".summarize()`, WithLLM(mock))
	assert.Equal(t, "short", asText(t, v))
}

func TestSemanticOpsRequireAdapter(t *testing.T) {
	err := runErr(t, `generate("x")`)
	assert.Contains(t, err.Error(), "semantic adapter")
}

// ---- top-level error positions ----

func TestRuntimeErrorCarriesPosition(t *testing.T) {
	err := runErr(t, `val x = 1
1 / 0`)
	var verr *value.Error
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, 2, verr.Line)
}

func TestBreakOutsideLoop(t *testing.T) {
	err := runErr(t, `break`)
	assert.Contains(t, err.Error(), "break")
}

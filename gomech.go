/*package gomech contains the shared particle types used by the mechanical
feedback coupling engine.

The engine injects discrete events (mass, momentum, thermal energy) emitted
by point sources into a surrounding set of continuum receptor particles. The
work is split across a fixed set of ranks which each own a disjoint spatial
subset of the particles; see the exchange package for the protocol and the
couple package for the physics.
*/
package gomech
